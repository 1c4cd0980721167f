package secrets

import (
	"github.com/zricethezav/gitleaks/v8/detect"
)

// Finding is a detected secret with enough location information to redact
// it in place.
type Finding struct {
	RuleID   string
	RuleDesc string
	Line     int
	StartCol int
	EndCol   int
	Match    string
}

// Detect scans content for secrets using gitleaks' default rule set.
func Detect(content string) ([]Finding, error) {
	detector, err := detect.NewDetectorDefaultConfig()
	if err != nil {
		return nil, err
	}

	gitleaksFindings := detector.DetectString(content)

	result := make([]Finding, 0, len(gitleaksFindings))
	for _, f := range gitleaksFindings {
		result = append(result, Finding{
			RuleID:   f.RuleID,
			RuleDesc: f.Description,
			Line:     f.StartLine,
			StartCol: f.StartColumn,
			EndCol:   f.EndColumn,
			Match:    f.Secret,
		})
	}
	return result, nil
}
