package eventbus

import (
	"fmt"
	"strings"

	"github.com/BrewBlox/brewblox-service/errors"
)

// Topics are slash-separated, MQTT style: "brewcast/state/spark-one".
// Filters may use "+" to match exactly one segment, and a trailing "#" to
// match one or more trailing segments. Wildcards must occupy a whole
// segment, and "#" is only valid as the final segment.
//
// The broker itself speaks NATS subjects, so topics are translated on the
// wire: "/" becomes ".", "+" becomes "*", and a trailing "#" becomes ">".
// Both "#" and ">" require at least one trailing segment, so the wildcard
// semantics carry over exactly.

// ValidateTopic checks that a topic is valid for publishing.
// Publish topics must be concrete: wildcards are not allowed.
func ValidateTopic(topic string) error {
	if topic == "" {
		return errors.WrapInvalid(
			fmt.Errorf("%w: empty topic", errors.ErrInvalidTopic),
			"Client", "ValidateTopic", "topic validation")
	}

	for _, segment := range strings.Split(topic, "/") {
		if segment == "" {
			return errors.WrapInvalid(
				fmt.Errorf("%w: empty segment in %q", errors.ErrInvalidTopic, topic),
				"Client", "ValidateTopic", "topic validation")
		}
		if strings.ContainsAny(segment, "+#") {
			return errors.WrapInvalid(
				fmt.Errorf("%w: wildcard in publish topic %q", errors.ErrInvalidTopic, topic),
				"Client", "ValidateTopic", "topic validation")
		}
		if strings.Contains(segment, ".") {
			return errors.WrapInvalid(
				fmt.Errorf("%w: %q may not contain dots", errors.ErrInvalidTopic, topic),
				"Client", "ValidateTopic", "topic validation")
		}
	}
	return nil
}

// ValidateFilter checks that a subscription filter is valid.
// "+" may appear in any segment, "#" only as the final segment, and both
// must occupy the whole segment.
func ValidateFilter(filter string) error {
	if filter == "" {
		return errors.WrapInvalid(
			fmt.Errorf("%w: empty filter", errors.ErrInvalidTopic),
			"Client", "ValidateFilter", "filter validation")
	}

	segments := strings.Split(filter, "/")
	for i, segment := range segments {
		if segment == "" {
			return errors.WrapInvalid(
				fmt.Errorf("%w: empty segment in %q", errors.ErrInvalidTopic, filter),
				"Client", "ValidateFilter", "filter validation")
		}
		if strings.Contains(segment, ".") {
			return errors.WrapInvalid(
				fmt.Errorf("%w: %q may not contain dots", errors.ErrInvalidTopic, filter),
				"Client", "ValidateFilter", "filter validation")
		}
		switch {
		case segment == "#":
			if i != len(segments)-1 {
				return errors.WrapInvalid(
					fmt.Errorf("%w: %q has non-final # wildcard", errors.ErrInvalidTopic, filter),
					"Client", "ValidateFilter", "filter validation")
			}
		case segment == "+":
			// Single-segment wildcard is valid anywhere
		case strings.ContainsAny(segment, "+#"):
			return errors.WrapInvalid(
				fmt.Errorf("%w: partial wildcard segment in %q", errors.ErrInvalidTopic, filter),
				"Client", "ValidateFilter", "filter validation")
		}
	}
	return nil
}

// Match reports whether a concrete topic matches a subscription filter.
// Assumes both have already been validated.
func Match(filter, topic string) bool {
	filterSegs := strings.Split(filter, "/")
	topicSegs := strings.Split(topic, "/")

	for i, fs := range filterSegs {
		if fs == "#" {
			// Requires at least one trailing segment
			return len(topicSegs) > i
		}
		if i >= len(topicSegs) {
			return false
		}
		if fs != "+" && fs != topicSegs[i] {
			return false
		}
	}
	return len(topicSegs) == len(filterSegs)
}

// topicToSubject translates a concrete publish topic to a broker subject
func topicToSubject(topic string) string {
	return strings.ReplaceAll(topic, "/", ".")
}

// filterToSubject translates a subscription filter to a broker subject
func filterToSubject(filter string) string {
	subject := strings.ReplaceAll(filter, "/", ".")
	subject = strings.ReplaceAll(subject, "+", "*")
	if strings.HasSuffix(subject, ".#") {
		subject = strings.TrimSuffix(subject, "#") + ">"
	} else if subject == "#" {
		subject = ">"
	}
	return subject
}

// subjectToTopic translates an inbound broker subject back to a topic
func subjectToTopic(subject string) string {
	return strings.ReplaceAll(subject, ".", "/")
}
