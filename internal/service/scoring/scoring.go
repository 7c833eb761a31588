package scoring

import (
	"math"
	"net/url"
	"strings"
)

const (
	categoryIdentity     = "identity"
	categoryProfessional = "professional_profile"
	categorySocial       = "social_presence"
	categoryCompany      = "company_profile"
)

// Data quality labels reported on enriched contacts.
const (
	QualityHigh   = "high"
	QualityMedium = "medium"
	QualityLow    = "low"
)

var freeHostingDomains = []string{
	"wordpress.com",
	"blogspot.com",
	"wixsite.com",
	"weebly.com",
	"squarespace.com",
	"medium.com",
	"substack.com",
	"godaddysites.com",
	"notion.site",
	"googlepages.com",
}

// ProfileFeatures captures the enrichment signals used to judge profile completeness.
type ProfileFeatures struct {
	FullName       string
	RoleTitle      string
	Location       string
	Phone          string
	AvatarURL      string
	CompanyName    string
	CompanyWebsite string
	Skills         []string
	Experience     int
	ProfileSummary string
	LinkedInURL    string
	TwitterURL     string
}

// ScoreResult reports the aggregate completeness and the per-category breakdown.
type ScoreResult struct {
	Total     int
	Breakdown map[string]int
}

// ConfidenceScore maps an enrichment confidence in [0,1] to a contact score in [0,100].
func ConfidenceScore(confidence float64) int {
	if math.IsNaN(confidence) {
		return 0
	}
	score := int(math.Round(confidence * 100))
	if score < 0 {
		return 0
	}
	if score > 100 {
		return 100
	}
	return score
}

// ComputeCompleteness evaluates how much of a contact profile the provider filled in.
func ComputeCompleteness(input ProfileFeatures) ScoreResult {
	breakdown := map[string]int{
		categoryIdentity:     scoreIdentity(input),
		categoryProfessional: scoreProfessional(input),
		categorySocial:       scoreSocial(input),
		categoryCompany:      scoreCompany(input),
	}

	total := 0
	for _, value := range breakdown {
		total += value
	}

	return ScoreResult{
		Total:     total,
		Breakdown: breakdown,
	}
}

// DataQuality classifies a completeness total.
func DataQuality(total int) string {
	switch {
	case total >= 70:
		return QualityHigh
	case total >= 40:
		return QualityMedium
	default:
		return QualityLow
	}
}

func scoreIdentity(input ProfileFeatures) int {
	score := 0
	if hasText(input.FullName) {
		score += 10
	}
	if hasText(input.Phone) {
		score += 10
	}
	if hasText(input.Location) {
		score += 5
	}
	if hasText(input.AvatarURL) {
		score += 5
	}
	return score
}

func scoreProfessional(input ProfileFeatures) int {
	score := 0
	if hasText(input.RoleTitle) {
		score += 10
	}
	if hasText(input.CompanyName) {
		score += 10
	}
	if hasText(input.ProfileSummary) {
		score += 5
	}
	score += min(countValues(input.Skills)*2, 10)
	if input.Experience > 0 {
		score += 5
	}
	if score > 40 {
		return 40
	}
	return score
}

func scoreSocial(input ProfileFeatures) int {
	score := 0
	if hasText(input.LinkedInURL) {
		score += 15
	}
	if hasText(input.TwitterURL) {
		score += 5
	}
	return score
}

func scoreCompany(input ProfileFeatures) int {
	if highQualityDomain(input.CompanyWebsite) {
		return 10
	}
	return 0
}

func hasText(value string) bool {
	return strings.TrimSpace(value) != ""
}

func countValues(values []string) int {
	count := 0
	for _, value := range values {
		if hasText(value) {
			count++
		}
	}
	return count
}

func highQualityDomain(raw string) bool {
	domain := extractDomain(raw)
	if domain == "" {
		return false
	}
	for _, bad := range freeHostingDomains {
		if domain == bad || strings.HasSuffix(domain, "."+bad) {
			return false
		}
	}
	return strings.Count(domain, ".") >= 1
}

func extractDomain(raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return ""
	}
	lowered := strings.ToLower(raw)
	if !strings.Contains(lowered, "://") {
		lowered = "https://" + lowered
	}
	parsed, err := url.Parse(lowered)
	if err != nil {
		return ""
	}
	host := strings.TrimSpace(strings.ToLower(parsed.Host))
	host = strings.TrimPrefix(host, "www.")
	return host
}
