package model

import "strings"

const otherPrefix = "other:"

// ChoiceValue is the decoded form of a single choice answer. The wire format
// keeps the legacy `other:<text>` sentinel for free-text answers; it is parsed
// here, at the boundary, so nothing downstream string-matches on prefixes.
type ChoiceValue struct {
	Option    string
	OtherText string
	IsOther   bool
}

func ParseChoiceValue(raw string) ChoiceValue {
	if strings.HasPrefix(raw, otherPrefix) {
		return ChoiceValue{IsOther: true, OtherText: strings.TrimPrefix(raw, otherPrefix)}
	}
	return ChoiceValue{Option: raw}
}

// Encode renders the wire representation, including the sentinel for
// free-text answers.
func (v ChoiceValue) Encode() string {
	if v.IsOther {
		return otherPrefix + v.OtherText
	}
	return v.Option
}

// Matches reports whether the answer selects the given option. A free-text
// answer matches the conventional catch-all option value "other".
func (v ChoiceValue) Matches(opt Option) bool {
	if v.IsOther {
		return opt.Value == "other"
	}
	return v.Option == opt.Value
}
