// Package script converts Simplified Chinese text to a Traditional variant.
// The converter is a pure string-to-string boundary; callers treat failures
// as degrade-to-original, never as fatal.
package script

import (
	"fmt"

	"github.com/longbridgeapp/opencc"
)

// Normalizer converts text between Chinese script variants.
type Normalizer interface {
	Convert(text string) (string, error)
}

// OpenCC wraps an OpenCC conversion profile. The default profile is s2tw
// (Simplified to Taiwan Traditional), matching the report's target audience.
type OpenCC struct {
	cc *opencc.OpenCC
}

// NewOpenCC loads the named conversion profile, e.g. "s2tw".
func NewOpenCC(profile string) (*OpenCC, error) {
	if profile == "" {
		profile = "s2tw"
	}
	cc, err := opencc.New(profile)
	if err != nil {
		return nil, fmt.Errorf("load opencc profile %s: %w", profile, err)
	}
	return &OpenCC{cc: cc}, nil
}

func (o *OpenCC) Convert(text string) (string, error) {
	if text == "" {
		return "", nil
	}
	out, err := o.cc.Convert(text)
	if err != nil {
		return "", fmt.Errorf("opencc convert: %w", err)
	}
	return out, nil
}

// Nop passes text through unchanged. Used when script normalization is
// disabled and in tests.
type Nop struct{}

func (Nop) Convert(text string) (string, error) { return text, nil }
