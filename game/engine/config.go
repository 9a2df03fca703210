package engine

import (
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/go-playground/validator/v10"
)

// DefaultTopicID identifies the built-in DevOps topic
const DefaultTopicID = "devops"

//go:embed topics/devops.json
var devopsTopicJSON []byte

var validate = validator.New(validator.WithRequiredStructEnabled())

// DefaultTopic returns a fresh copy of the built-in DevOps lifecycle topic
func DefaultTopic() *Topic {
	topic, err := ParseTopic(devopsTopicJSON)
	if err != nil {
		panic(fmt.Sprintf("embedded topic: %v", err))
	}
	return topic
}

// ParseTopic decodes a topic from JSON without validating it
func ParseTopic(data []byte) (*Topic, error) {
	var topic Topic
	if err := json.Unmarshal(data, &topic); err != nil {
		return nil, fmt.Errorf("failed to parse topic: %w", err)
	}
	return &topic, nil
}

// LoadTopic reads and validates a topic JSON file
func LoadTopic(path string) (*Topic, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read topic file: %w", err)
	}
	topic, err := ParseTopic(data)
	if err != nil {
		return nil, err
	}
	if err := ValidateTopic(topic); err != nil {
		return nil, err
	}
	return topic, nil
}

// ValidateTopic checks that a topic can be dealt: required fields, pair
// count bounds, and every card text telling its pair apart (see
// DuplicateProblems).
func ValidateTopic(topic *Topic) error {
	if topic == nil {
		return errors.New("topic validation: topic is nil")
	}

	if err := validate.Struct(topic); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			fe := verrs[0]
			return fmt.Errorf("topic validation: %s failed on '%s' (param %q)", fe.Namespace(), fe.Tag(), fe.Param())
		}
		return fmt.Errorf("topic validation: %w", err)
	}

	if problems := DuplicateProblems(topic); len(problems) > 0 {
		return fmt.Errorf("topic validation: %s", problems[0])
	}
	return nil
}

// DuplicateProblems lists the pairs players could not tell apart: a term
// equal to its own definition, or a term or definition used by two pairs.
// Texts are compared trimmed and case-insensitively; empty texts are left to
// the required-field checks.
func DuplicateProblems(topic *Topic) []string {
	var problems []string
	terms := make(map[string]int, len(topic.Pairs))
	definitions := make(map[string]int, len(topic.Pairs))

	for i, p := range topic.Pairs {
		term := normalizeText(p.Term)
		definition := normalizeText(p.Definition)

		if term != "" && term == definition {
			problems = append(problems, fmt.Sprintf("Pair %d: term and definition are the same text", i+1))
		}
		if j, dup := terms[term]; dup && term != "" {
			problems = append(problems, fmt.Sprintf("Pairs %d and %d share the term %q", j+1, i+1, p.Term))
		} else {
			terms[term] = i
		}
		if j, dup := definitions[definition]; dup && definition != "" {
			problems = append(problems, fmt.Sprintf("Pairs %d and %d share the definition %q", j+1, i+1, p.Definition))
		} else {
			definitions[definition] = i
		}
	}
	return problems
}

func normalizeText(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}
