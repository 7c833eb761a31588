// Package normalize cleans the contact fields carried by enrichment payloads.
package normalize

import (
	"errors"
	"net/url"
	"regexp"
	"strings"

	"github.com/nyaruka/phonenumbers"
	"golang.org/x/net/idna"
)

// ErrInvalidEmail is returned for addresses that cannot be normalized.
var ErrInvalidEmail = errors.New("invalid email address")

var (
	emailPattern = regexp.MustCompile(`^[a-z0-9._%+\-']+@[a-z0-9.-]+\.[a-z0-9-]{2,}$`)
	idnaProfile  = idna.Lookup
)

const (
	trackingPrefix     = "utm_"
	defaultPhoneRegion = "US"
)

// Social platforms with a canonical profile URL.
const (
	PlatformLinkedIn = "linkedin"
	PlatformTwitter  = "twitter"
)

var allowedSocialDomains = map[string]string{
	"linkedin.com": PlatformLinkedIn,
	"lnkd.in":      PlatformLinkedIn,
	"twitter.com":  PlatformTwitter,
	"x.com":        PlatformTwitter,
}

// Normalizer applies the email, phone and profile URL rules.
type Normalizer struct {
	DefaultRegion string
}

// New builds a normalizer parsing national phone numbers in defaultRegion.
func New(defaultRegion string) *Normalizer {
	region := strings.ToUpper(strings.TrimSpace(defaultRegion))
	if region == "" {
		region = defaultPhoneRegion
	}
	return &Normalizer{DefaultRegion: region}
}

// Email lower-cases the address and converts an internationalized domain to its ASCII form.
func (n *Normalizer) Email(raw string) (string, error) {
	email := strings.ToLower(strings.TrimSpace(raw))
	at := strings.LastIndex(email, "@")
	if at <= 0 || at == len(email)-1 {
		return "", ErrInvalidEmail
	}

	local, domain := email[:at], strings.TrimSuffix(email[at+1:], ".")
	asciiDomain, err := idnaProfile.ToASCII(domain)
	if err != nil || !isDomainValid(asciiDomain) {
		return "", ErrInvalidEmail
	}

	email = local + "@" + asciiDomain
	if !emailPattern.MatchString(email) {
		return "", ErrInvalidEmail
	}
	return email, nil
}

// Phone returns the E.164 form of raw, or "" when it is not a valid number.
func (n *Normalizer) Phone(raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return ""
	}
	region := n.DefaultRegion
	if region == "" {
		region = defaultPhoneRegion
	}
	number, err := phonenumbers.Parse(raw, region)
	if err != nil {
		return ""
	}
	if !phonenumbers.IsPossibleNumber(number) || !phonenumbers.IsValidNumber(number) {
		return ""
	}
	return phonenumbers.Format(number, phonenumbers.E164)
}

// SocialURL canonicalizes a profile link: https scheme, lower-case host without "www.",
// no tracking parameters and no trailing slash. It rejects hosts of other platforms.
func (n *Normalizer) SocialURL(platform, raw string) (string, bool) {
	u, err := sanitizeURL(raw)
	if err != nil {
		return "", false
	}
	host := strings.TrimPrefix(strings.ToLower(u.Hostname()), "www.")
	hostPlatform, ok := hostMatchesAllowed(host)
	if !ok || hostPlatform != platform {
		return "", false
	}
	if hostPlatform == PlatformLinkedIn && host != "lnkd.in" {
		host = "www.linkedin.com"
	}
	u.Host = host
	u.Fragment = ""
	stripTracking(u)
	u.Path = strings.TrimRight(u.Path, "/")
	return u.String(), true
}

// Name collapses internal whitespace.
func (n *Normalizer) Name(raw string) string {
	return strings.Join(strings.Fields(raw), " ")
}

// LocalPart returns the part of an address before the last '@'.
func LocalPart(email string) string {
	at := strings.LastIndex(email, "@")
	if at < 0 {
		return email
	}
	return email[:at]
}

func hostMatchesAllowed(host string) (string, bool) {
	host = strings.ToLower(strings.Trim(strings.TrimSpace(host), "."))
	if host == "" {
		return "", false
	}
	for domain, platform := range allowedSocialDomains {
		if host == domain || strings.HasSuffix(host, "."+domain) {
			return platform, true
		}
	}
	return "", false
}

func sanitizeURL(raw string) (*url.URL, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, errors.New("empty url")
	}
	if !strings.Contains(raw, "://") {
		raw = "https://" + raw
	}
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		return nil, errors.New("invalid url")
	}
	u.Scheme = "https"
	return u, nil
}

func stripTracking(u *url.URL) {
	query := u.Query()
	changed := false
	for key := range query {
		if strings.HasPrefix(strings.ToLower(key), trackingPrefix) {
			query.Del(key)
			changed = true
		}
	}
	if changed {
		u.RawQuery = query.Encode()
	}
}

func isDomainValid(domain string) bool {
	if strings.Count(domain, ".") == 0 {
		return false
	}
	for _, part := range strings.Split(domain, ".") {
		if part == "" || strings.HasPrefix(part, "-") || strings.HasSuffix(part, "-") {
			return false
		}
	}
	return true
}
