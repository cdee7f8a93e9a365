package report

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	"mangle/internal/core/app"
	"mangle/internal/core/errors"
	"mangle/internal/engine/mapping"
	"mangle/internal/engine/model"

	"gopkg.in/yaml.v3"
)

type Format string

const (
	FormatText Format = "text"
	FormatYAML Format = "yaml"
)

func ParseFormat(raw string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(raw))); f {
	case FormatText, "":
		return FormatText, nil
	case FormatYAML:
		return f, nil
	default:
		return "", errors.AddContext(errors.Newf(errors.CodeConfig, "unknown mapping format %q", raw), errors.CtxSetting, "format")
	}
}

// WriteMapping exports a run's mapping in the given format.
func WriteMapping(w io.Writer, format Format, res app.Result) error {
	switch format {
	case FormatYAML:
		return WriteYAML(w, res)
	default:
		return WriteText(w, res.Entries)
	}
}

type classBlock struct {
	name    string
	newName string
	members []mapping.Entry
}

// groupByClass keeps the entry order: classes first, then each class's
// members. Owners without a class entry kept their name.
func groupByClass(entries []mapping.Entry) ([]*classBlock, map[string]string) {
	var blocks []*classBlock
	byName := make(map[string]*classBlock)
	renamed := make(map[string]string)
	block := func(owner string) *classBlock {
		b, ok := byName[owner]
		if !ok {
			b = &classBlock{name: owner, newName: owner}
			byName[owner] = b
			blocks = append(blocks, b)
		}
		return b
	}
	for _, e := range entries {
		if e.Kind == model.KindClass {
			block(e.Owner).newName = e.NewName
			renamed[e.Owner] = e.NewName
			continue
		}
		b := block(e.Owner)
		b.members = append(b.members, e)
	}
	return blocks, renamed
}

// WriteText writes the mapping in the ProGuard layout:
//
//	app.Foo -> app.abcd:
//	    int count -> a
//	    void run() -> b # moved to app.efgh
func WriteText(w io.Writer, entries []mapping.Entry) error {
	bw := bufio.NewWriter(w)
	blocks, renamed := groupByClass(entries)
	for _, b := range blocks {
		fmt.Fprintf(bw, "%s -> %s:\n", javaName(b.name), javaName(b.newName))
		for _, e := range b.members {
			sig := fieldSignature(e.Name, e.Desc)
			if e.Kind == model.KindMethod {
				sig = methodSignature(e.Name, e.Desc)
			}
			fmt.Fprintf(bw, "    %s -> %s", sig, e.NewName)
			if e.NewOwner != "" {
				owner := e.NewOwner
				if n, ok := renamed[owner]; ok {
					owner = n
				}
				fmt.Fprintf(bw, " # moved to %s", javaName(owner))
			}
			bw.WriteString("\n")
		}
	}
	return bw.Flush()
}

type yamlDocument struct {
	Run     yamlRun     `yaml:"run"`
	Classes []yamlClass `yaml:"classes"`
}

type yamlRun struct {
	ID        string `yaml:"id"`
	Seed      uint64 `yaml:"seed"`
	Timestamp string `yaml:"timestamp,omitempty"`
	Input     string `yaml:"input,omitempty"`
	Output    string `yaml:"output,omitempty"`
}

type yamlClass struct {
	Name    string       `yaml:"name"`
	NewName string       `yaml:"new_name"`
	Fields  []yamlMember `yaml:"fields,omitempty"`
	Methods []yamlMember `yaml:"methods,omitempty"`
}

type yamlMember struct {
	Name     string `yaml:"name"`
	Desc     string `yaml:"desc"`
	NewName  string `yaml:"new_name"`
	NewOwner string `yaml:"new_owner,omitempty"`
}

func WriteYAML(w io.Writer, res app.Result) error {
	doc := yamlDocument{Run: yamlRun{ID: res.RunID, Seed: res.Seed, Input: res.Input, Output: res.Output}}
	if !res.Started.IsZero() {
		doc.Run.Timestamp = res.Started.UTC().Format("2006-01-02T15:04:05Z07:00")
	}
	blocks, _ := groupByClass(res.Entries)
	for _, b := range blocks {
		yc := yamlClass{Name: b.name, NewName: b.newName}
		for _, e := range b.members {
			m := yamlMember{Name: e.Name, Desc: e.Desc, NewName: e.NewName, NewOwner: e.NewOwner}
			if e.Kind == model.KindField {
				yc.Fields = append(yc.Fields, m)
			} else {
				yc.Methods = append(yc.Methods, m)
			}
		}
		doc.Classes = append(doc.Classes, yc)
	}

	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(doc); err != nil {
		return errors.Wrap(err, errors.CodeInternal, "encode yaml mapping")
	}
	return enc.Close()
}
