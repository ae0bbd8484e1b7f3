package classify

import "strings"

// Classes is the fixed class list of the classification model
var Classes = []string{"ambulance", "firetruck", "police", "traffic"}

type labelRule struct {
	token     string
	label     string
	emergency bool
}

// Checked in order; the first token found in the prediction wins.
var labelRules = []labelRule{
	{"police", "🚓 Police siren detected", true},
	{"ambulance", "🚑 Ambulance siren detected", true},
	{"firetruck", "🚒 Fire truck siren detected", true},
	{"traffic", "✅ Ordinary city traffic noise", false},
}

// Label maps a raw prediction to its display label.
// Predictions matching no known token are returned unchanged.
func Label(prediction string) string {
	if r, ok := match(prediction); ok {
		return r.label
	}
	return prediction
}

// Emergency reports whether the prediction maps to a siren class
func Emergency(prediction string) bool {
	r, ok := match(prediction)
	return ok && r.emergency
}

func match(prediction string) (labelRule, bool) {
	for _, r := range labelRules {
		if strings.Contains(prediction, r.token) {
			return r, true
		}
	}
	return labelRule{}, false
}
