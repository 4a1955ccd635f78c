package friction

import "strings"

// unclassifiedSuggestion is the only suggestion given when no rule matches.
const unclassifiedSuggestion = "Provide more detail to better understand the friction."

// DefaultRules returns the built-in rule set, in evaluation order.
// Triggers cover the Spanish phrasing the dashboard was first used with
// as well as English equivalents. Each call returns a fresh copy.
func DefaultRules() []Rule {
	return []Rule{
		{
			Type:     TypeLowConversion,
			Priority: LevelHigh,
			Keywords: withCurlyApostrophes(
				// traffic arrives but does not convert / leave data
				"visitas", "tráfico", "poca conversión", "no dejan sus datos",
				"no se registran", "llegan pero", "no convierten",
				"visits", "traffic", "low conversion", "don't leave their data",
				"don't leave their details", "don't sign up", "arrive but",
				"arrives but", "don't convert", "doesn't convert", "not converting",
			),
			Suggestions: []string{
				"Reduce the number of fields in your form.",
				"Add a clearer message or a stronger call to action.",
				"Include social proof or testimonials.",
			},
		},
		{
			Type:     TypeLowActivation,
			Priority: LevelHigh,
			Keywords: withCurlyApostrophes(
				// registered users stall before finishing onboarding
				"registran", "no avanzan", "no completan", "no siguen",
				"se quedan", "no terminan",
				"register", "sign up but", "signed up but", "don't progress",
				"don't complete", "don't finish", "don't continue", "get stuck",
			),
			Suggestions: []string{
				"Simplify the first steps of onboarding.",
				"Explain more clearly what the user should do after signing up.",
				"Add a tutorial or quick-start guide.",
			},
		},
		{
			Type:     TypeLowRetention,
			Priority: LevelMedium,
			Keywords: withCurlyApostrophes(
				// users leave after first use
				"no vuelven", "abandonan", "dejan de usar", "solo una vez",
				"no regresan", "se van",
				"don't return", "don't come back", "never come back", "abandon",
				"stop using", "only once", "churn",
			),
			Suggestions: []string{
				"Send reminders or reactivation emails.",
				"Highlight features that deliver ongoing value.",
				"Identify which benefits are missing after the first use.",
			},
		},
		{
			Type:     TypeLowReferral,
			Priority: LevelLow,
			Keywords: withCurlyApostrophes(
				// users do not recommend or share
				"no recomiendan", "no comparten", "no hablan de nosotros",
				"sin referidos", "no invitan",
				"don't recommend", "don't share", "don't talk about us",
				"no referrals", "don't invite",
			),
			Suggestions: []string{
				"Set up a simple referral program.",
				"Ask for reviews right after a good customer moment.",
			},
		},
	}
}

// withCurlyApostrophes adds a copy of every keyword containing ' spelled
// with ’ instead, so text pasted from word processors still matches.
func withCurlyApostrophes(keywords ...string) []string {
	out := keywords
	for _, k := range keywords {
		if strings.Contains(k, "'") {
			out = append(out, strings.ReplaceAll(k, "'", "’"))
		}
	}
	return out
}
