// Package policy_engine detects sensitive-data shapes in generated text.
//
// The engine is the second line of defense behind the keyword classifier in
// services/chat: even when a question looks benign, the model's answer may
// surface identifiers pulled from indexed documents. The rules live in an
// embedded YAML file (see the enforcement package) so they can be reviewed
// and unit-tested independently of the orchestration logic.
package policy_engine

import (
	"fmt"
	"strings"

	"github.com/docsage/docsage/services/policy_engine/enforcement"
	"gopkg.in/yaml.v3"
)

// Engine holds the compiled leak-detection rules and scans text against them.
type Engine struct {
	Classifiers []Classification
}

// NewEngine initializes an Engine from the policy definitions embedded in
// the binary. It unmarshals the YAML, compiles all regex patterns, and sorts
// classifications by priority. Returns an error if the embedded YAML is
// malformed or contains an invalid regex.
func NewEngine() (*Engine, error) {
	var policyFile PolicyFile
	if err := yaml.Unmarshal(enforcement.LeakPatterns, &policyFile); err != nil {
		return nil, fmt.Errorf("failed to unmarshal the embedded policy file: %w", err)
	}

	if err := policyFile.CompileRegexes(); err != nil {
		return nil, fmt.Errorf("failed to compile a regex: %w", err)
	}
	policyFile.SortByPriority()

	return &Engine{Classifiers: policyFile.Classifications}, nil
}

// Scan audits a string against every rule in the engine.
//
// Content is split into lines and every line is checked against every
// pattern, capturing line numbers and the text that triggered each match.
// An empty result means no sensitive shapes were found.
func (e *Engine) Scan(content string) []Finding {
	var findings []Finding
	lines := strings.Split(content, "\n")
	for lineNum, line := range lines {
		for _, classifier := range e.Classifiers {
			for _, pattern := range classifier.Patterns {
				match := pattern.compiled.FindString(line)
				if match != "" {
					findings = append(findings, Finding{
						LineNumber:         lineNum + 1,
						MatchedContent:     strings.TrimSpace(match),
						ClassificationName: classifier.Name,
						PatternId:          pattern.Id,
						PatternDescription: pattern.Description,
						Confidence:         pattern.Confidence,
					})
				}
			}
		}
	}
	return findings
}
