// Package e2e runs ingestion and retrieval end to end over real files in every
// supported format.
package e2e

import "fmt"

// Article is one knowledge-base document.
type Article struct {
	Name string
	Text string
}

// Lookup is a query and the article that must appear among its top results.
type Lookup struct {
	Query  string
	Expect string
}

var articles = []struct {
	slug  string
	text  string
	query string
}{
	{"expense-policy", "Employees submit expense reports within thirty days. Receipts are required for every reimbursement above twenty dollars.", "expense reimbursement receipts"},
	{"vacation-policy", "Full-time staff accrue vacation days monthly. Unused vacation carries over up to ten days into the next calendar year.", "unused vacation carry over"},
	{"parental-leave", "Parents receive sixteen weeks of paid parental leave after a birth or adoption.", "paid parental leave adoption"},
	{"laptop-setup", "New laptops arrive with disk encryption enabled. Install the VPN client before connecting to internal dashboards.", "laptop disk encryption"},
	{"vpn-troubleshooting", "If the VPN tunnel drops, restart the client and check that multifactor tokens are synchronized.", "VPN tunnel drops"},
	{"oncall-handbook", "The on-call engineer acknowledges pages within fifteen minutes and escalates unresolved incidents to the secondary.", "acknowledge pages escalate"},
	{"incident-review", "Every severity one incident gets a blameless review with a timeline, contributing factors and follow-up actions.", "blameless incident timeline"},
	{"release-process", "Releases ship every Tuesday. A release captain freezes the branch on Monday and runs the smoke suite.", "release captain freezes branch"},
	{"code-review", "Pull requests need one approving review. Reviewers focus on correctness, naming and test coverage.", "pull requests approving review"},
	{"database-backups", "Nightly snapshots of the billing database are copied to cold storage and restored weekly to verify them.", "nightly billing snapshots cold storage"},
	{"access-requests", "Request production access through the access portal. Grants expire automatically after eight hours.", "production access grants expire"},
	{"office-hours", "The downtown office opens at seven and closes at nine. Badges are required after six in the evening.", "downtown office badges evening"},
	{"travel-booking", "Book flights and hotels through the travel desk. Economy class applies to flights shorter than six hours.", "book flights hotels travel desk"},
	{"security-training", "Annual phishing awareness training is mandatory. Report suspicious emails with the phishing button.", "phishing awareness training"},
	{"quarterly-goals", "Each team publishes quarterly objectives with measurable key results and reviews them at the midpoint.", "objectives measurable key results"},
	{"hiring-guide", "Interview loops include a coding exercise, a system design session and a values conversation with a manager.", "interview loop coding exercise"},
	{"customer-support", "Support tickets are triaged by priority. Enterprise customers receive a first response within one hour.", "support tickets triaged enterprise"},
	{"data-retention", "Application logs are retained for ninety days. Personal data is deleted within thirty days of account closure.", "logs retained ninety days"},
	{"brand-guidelines", "Use the primary teal color for buttons. The logo needs clear space equal to the height of its icon.", "logo teal color clear space"},
	{"wellness-stipend", "A monthly wellness stipend covers gym memberships, meditation apps and fitness classes.", "wellness stipend gym memberships"},
	{"equipment-returns", "Departing employees return laptops, monitors and badges to facilities on their final day.", "departing employees return monitors"},
	{"meeting-etiquette", "Meetings start five minutes past the hour, share an agenda in advance and end with written decisions.", "agenda written decisions meetings"},
	{"cloud-budget", "Each service owner reviews cloud spend weekly and tags resources with a cost center.", "cloud spend cost center tags"},
	{"feature-flags", "Feature flags default to off in production and are removed within two sprints after full rollout.", "feature flags rollout sprints"},
}

// Articles returns the knowledge base.
func Articles() []Article {
	out := make([]Article, len(articles))
	for i, a := range articles {
		out[i] = Article{Name: a.slug, Text: a.text}
	}
	return out
}

// Lookups returns one query per article. Expect is the article name without an
// extension; callers add the extension they stored it under.
func Lookups() []Lookup {
	out := make([]Lookup, len(articles))
	for i, a := range articles {
		out[i] = Lookup{Query: a.query, Expect: a.slug}
	}
	return out
}

// FileName returns the name article i is stored under when formats rotate
// through exts.
func FileName(i int, exts []string) string {
	return fmt.Sprintf("%s%s", articles[i].slug, exts[i%len(exts)])
}
