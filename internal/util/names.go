package util

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// ValidationError reports an invalid node, namespace, topic or service name.
type ValidationError struct {
	Field   string `json:"field"`   // kind of name being validated
	Value   any    `json:"value"`   // offending value
	Message string `json:"message"` // human-readable reason
}

// Error implements the error interface for ValidationError.
func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s %q: %s", e.Field, e.Value, e.Message)
}

// ValidateNodeName checks that name is a single non-empty token of letters,
// digits and underscores not starting with a digit.
func ValidateNodeName(name string) error {
	if name == "" {
		return &ValidationError{Field: "node name", Value: name, Message: "must not be empty"}
	}
	if msg := checkToken(name); msg != "" {
		return &ValidationError{Field: "node name", Value: name, Message: msg}
	}
	return nil
}

// ValidateNamespace checks an absolute namespace such as "/" or "/robot/arm".
func ValidateNamespace(ns string) error {
	if ns == "/" {
		return nil
	}
	if !strings.HasPrefix(ns, "/") {
		return &ValidationError{Field: "namespace", Value: ns, Message: "must be absolute"}
	}
	if msg := checkTokens(ns[1:]); msg != "" {
		return &ValidationError{Field: "namespace", Value: ns, Message: msg}
	}
	return nil
}

// ValidateTopicName checks a topic or service name before expansion. The
// name may be absolute ("/scan"), relative ("scan") or private ("~/scan").
func ValidateTopicName(name string) error {
	if name == "" {
		return &ValidationError{Field: "topic name", Value: name, Message: "must not be empty"}
	}
	rest := name
	switch {
	case name == "~":
		return nil
	case strings.HasPrefix(name, "~/"):
		rest = name[2:]
	case strings.HasPrefix(name, "/"):
		rest = name[1:]
	}
	if msg := checkTokens(rest); msg != "" {
		return &ValidationError{Field: "topic name", Value: name, Message: msg}
	}
	return nil
}

// ExpandTopicName validates name and resolves it against the node's name and
// namespace into an absolute name.
func ExpandTopicName(name, nodeName, namespace string) (string, error) {
	if err := ValidateTopicName(name); err != nil {
		return "", err
	}
	ns := strings.TrimSuffix(namespace, "/")
	switch {
	case strings.HasPrefix(name, "/"):
		return name, nil
	case name == "~":
		return ns + "/" + nodeName, nil
	case strings.HasPrefix(name, "~/"):
		return ns + "/" + nodeName + name[1:], nil
	default:
		return ns + "/" + name, nil
	}
}

// FullyQualifiedName joins a namespace and node name.
func FullyQualifiedName(namespace, name string) string {
	return strings.TrimSuffix(namespace, "/") + "/" + name
}

// NewID returns a random identifier for nodes and endpoints.
func NewID() string {
	return uuid.NewString()
}

func checkTokens(path string) string {
	if path == "" {
		return "must not end with '/'"
	}
	for _, tok := range strings.Split(path, "/") {
		if tok == "" {
			return "must not contain empty segments"
		}
		if msg := checkToken(tok); msg != "" {
			return msg
		}
	}
	return ""
}

func checkToken(tok string) string {
	for i, r := range tok {
		switch {
		case r == '_', r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z':
		case r >= '0' && r <= '9':
			if i == 0 {
				return "must not start with a digit"
			}
		default:
			return fmt.Sprintf("contains invalid character %q", r)
		}
	}
	return ""
}
