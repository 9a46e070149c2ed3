// Package program 读写待优化的程序：YAML 描述的类与方法，方法体为 IR 文本
//
//	classes:
//	  - name: LFoo;
//	    methods:
//	      - name: bar
//	        static: true
//	        code: |
//	          (const v0 1)
//	          (return v0)
package program

import (
	"os"

	"github.com/cockroachdb/errors"
	"go.uber.org/multierr"
	"gopkg.in/yaml.v3"

	"github.com/tangzhangming/dexopt/internal/asm"
	"github.com/tangzhangming/dexopt/internal/ir"
)

// Program 程序
type Program struct {
	Classes []*Class `yaml:"classes"`
}

// Class 类
type Class struct {
	Name    string    `yaml:"name"`
	Methods []*Method `yaml:"methods"`
}

// Method 方法
type Method struct {
	Name            string `yaml:"name"`
	Static          bool   `yaml:"static,omitempty"`
	NoOptimizations bool   `yaml:"no_optimizations,omitempty"`
	Code            string `yaml:"code,omitempty"`

	// CFG 方法体；没有代码的方法（抽象、native）为 nil
	CFG *ir.CFG `yaml:"-"`

	class string
}

// FullName 类名.方法名
func (m *Method) FullName() string { return m.class + "." + m.Name }

// HasCode 是否有方法体
func (m *Method) HasCode() bool { return m.CFG != nil }

// Load 从文件读取程序
func Load(path string) (*Program, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "failed to read program")
	}
	return Parse(data)
}

// Parse 解析程序并汇编每个方法，所有汇编错误一起返回
func Parse(data []byte) (*Program, error) {
	var p Program
	if err := yaml.Unmarshal(data, &p); err != nil {
		return nil, errors.Wrap(err, "failed to parse program")
	}

	var errs error
	seen := make(map[string]bool)
	for _, c := range p.Classes {
		if c.Name == "" {
			errs = multierr.Append(errs, errors.New("class without a name"))
			continue
		}
		for _, m := range c.Methods {
			m.class = c.Name
			if seen[m.FullName()] {
				errs = multierr.Append(errs, errors.Newf("duplicate method %s", m.FullName()))
				continue
			}
			seen[m.FullName()] = true
			if m.Code == "" {
				continue
			}
			cfg, err := asm.Parse(m.Code)
			if err != nil {
				errs = multierr.Append(errs, errors.Wrapf(err, "%s", m.FullName()))
				continue
			}
			m.CFG = cfg
		}
	}
	if errs != nil {
		return nil, errs
	}
	return &p, nil
}

// Methods 按出现顺序列出所有方法
func (p *Program) Methods() []*Method {
	var out []*Method
	for _, c := range p.Classes {
		out = append(out, c.Methods...)
	}
	return out
}

// Marshal 把当前的 CFG 打印回 YAML
func (p *Program) Marshal() ([]byte, error) {
	for _, m := range p.Methods() {
		if m.CFG != nil {
			m.Code = m.CFG.String()
		}
	}
	data, err := yaml.Marshal(p)
	if err != nil {
		return nil, errors.Wrap(err, "failed to encode program")
	}
	return data, nil
}

// Save 写入文件
func (p *Program) Save(path string) error {
	data, err := p.Marshal()
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return errors.Wrap(err, "failed to write program")
	}
	return nil
}
