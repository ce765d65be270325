package reporting

import "encoding/json"

// RenderJSON serializes the report for machine consumption. Indented so
// the artifact diffs cleanly between runs.
func RenderJSON(r *Report) (string, error) {
	out, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return "", err
	}
	return string(out) + "\n", nil
}
