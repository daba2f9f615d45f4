package synth

// Lexicon supplies the surface text for synthetic messages.
type Lexicon struct {
	Names     []string
	Issues    map[string][]string // by category
	Feelings  map[string][]string // by sentiment
	Templates []string
}

var DefaultLexicon = Lexicon{
	Names: []string{"Alex", "Sam", "Taylor", "Jordan", "Priya", "Omar", "Lee", "Chen", "Ivy"},
	Issues: map[string][]string{
		"billing": {
			"I was charged twice",
			"My invoice shows the wrong amount",
			"Refund still not processed",
		},
		"login": {
			"2FA code never arrives",
			"Password reset link expired",
			"Locked out after update",
		},
		"bug": {
			"Export to CSV crashes",
			"Page goes blank on save",
			"Mobile app freezes on login",
		},
		"feature_request": {
			"Need dark mode",
			"Please add SSO with Okta",
			"Custom roles for teams",
		},
		"shipping": {
			"Package stuck in transit",
			"Wrong item received",
			"Return label not working",
		},
	},
	Feelings: map[string][]string{
		"negative": {"frustrating", "unacceptable", "blocking", "bad"},
		"neutral":  {"inconvenient", "annoying"},
		"positive": {"okay now", "resolved after retry"},
	},
	Templates: []string{
		"Hi team, I'm {name} on the {product} plan. {issue}. This is really {feeling}!",
		"Hello, {issue}. I'm using {product} and it's getting {feeling}. Please fix.",
		"My company is on {product}. {issue}. Priority should be {priority}.",
		"I tried support but no luck: {issue}. Using {product}.",
	},
}
