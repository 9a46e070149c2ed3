package arraylit

// 指标名称
const (
	MetricFilledArrays                        = "num_filled_arrays"
	MetricFilledArrayElements                 = "num_filled_array_elements"
	MetricFilledArrayChunks                   = "num_filled_array_chunks"
	MetricRemainingWideArrays                 = "num_remaining_wide_arrays"
	MetricRemainingWideArrayElements          = "num_remaining_wide_array_elements"
	MetricRemainingUnimplementedArrays        = "num_remaining_unimplemented_arrays"
	MetricRemainingUnimplementedArrayElements = "num_remaining_unimplemented_array_elements"
	MetricRemainingBuggyArrays                = "num_remaining_buggy_arrays"
	MetricRemainingBuggyArrayElements         = "num_remaining_buggy_array_elements"
)

// Stats 单个方法（或汇总后）的统计
type Stats struct {
	FilledArrays                        int
	FilledArrayElements                 int
	FilledArrayChunks                   int
	RemainingWideArrays                 int
	RemainingWideArrayElements          int
	RemainingUnimplementedArrays        int
	RemainingUnimplementedArrayElements int
	RemainingBuggyArrays                int
	RemainingBuggyArrayElements         int
}

// Add 逐项相加
func (s Stats) Add(o Stats) Stats {
	s.FilledArrays += o.FilledArrays
	s.FilledArrayElements += o.FilledArrayElements
	s.FilledArrayChunks += o.FilledArrayChunks
	s.RemainingWideArrays += o.RemainingWideArrays
	s.RemainingWideArrayElements += o.RemainingWideArrayElements
	s.RemainingUnimplementedArrays += o.RemainingUnimplementedArrays
	s.RemainingUnimplementedArrayElements += o.RemainingUnimplementedArrayElements
	s.RemainingBuggyArrays += o.RemainingBuggyArrays
	s.RemainingBuggyArrayElements += o.RemainingBuggyArrayElements
	return s
}

// record 记录一次判定
func (s *Stats) record(v Verdict, elements int) {
	switch v {
	case Accept:
		s.FilledArrays++
		s.FilledArrayElements += elements
	case Buggy:
		s.RemainingBuggyArrays++
		s.RemainingBuggyArrayElements += elements
	case Wide:
		s.RemainingWideArrays++
		s.RemainingWideArrayElements += elements
	case Unimplemented:
		s.RemainingUnimplementedArrays++
		s.RemainingUnimplementedArrayElements += elements
	}
}

// Metrics 指标名 -> 值
func (s Stats) Metrics() map[string]int {
	return map[string]int{
		MetricFilledArrays:                        s.FilledArrays,
		MetricFilledArrayElements:                 s.FilledArrayElements,
		MetricFilledArrayChunks:                   s.FilledArrayChunks,
		MetricRemainingWideArrays:                 s.RemainingWideArrays,
		MetricRemainingWideArrayElements:          s.RemainingWideArrayElements,
		MetricRemainingUnimplementedArrays:        s.RemainingUnimplementedArrays,
		MetricRemainingUnimplementedArrayElements: s.RemainingUnimplementedArrayElements,
		MetricRemainingBuggyArrays:                s.RemainingBuggyArrays,
		MetricRemainingBuggyArrayElements:         s.RemainingBuggyArrayElements,
	}
}
