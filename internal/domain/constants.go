package domain

// Account types. Referral accounts are consultancy-issued and locked to one
// device and one country; verified accounts gain a country after visa review.
const (
	AccountReferral = "referral"
	AccountVerified = "verified"
	AccountAdmin    = "admin"
	AccountFounder  = "founder"
)

// Moderation violation kinds.
const (
	ViolationInappropriateLanguage = "inappropriate_language"
	ViolationContactSharing        = "contact_sharing"
	ViolationSpamPattern           = "spam_pattern"
)

// Contact-sharing sub-types reported in moderation details.
const (
	ContactTypePhone          = "phone"
	ContactTypeEmail          = "email"
	ContactTypeSocialMedia    = "social_media"
	ContactTypeSocialKeyword  = "social_keyword"
	ContactTypeContactRequest = "contact_request"
)

// Report lifecycle.
const (
	ReportStatusPending  = "pending"
	ReportStatusReviewed = "reviewed"
	ReportStatusResolved = "resolved"
)

// Report weights. Explicit user reports count full; automated moderation
// flags count half. A user crossing BanThreshold is banned exactly once.
const (
	ReportWeightExplicit   = 1.0
	ReportWeightModeration = 0.5
	BanThreshold           = 5.0
)

// Country describes one supported chat room.
type Country struct {
	ID   string
	Name string
	Flag string
}

// Countries is the fixed set of supported rooms, one per country.
var Countries = []Country{
	{ID: "us", Name: "United States", Flag: "🇺🇸"},
	{ID: "uk", Name: "United Kingdom", Flag: "🇬🇧"},
	{ID: "de", Name: "Germany", Flag: "🇩🇪"},
	{ID: "ca", Name: "Canada", Flag: "🇨🇦"},
	{ID: "au", Name: "Australia", Flag: "🇦🇺"},
}

// CountryByID returns the Country for a room id, or false when unsupported.
func CountryByID(id string) (Country, bool) {
	for _, c := range Countries {
		if c.ID == id {
			return c, true
		}
	}
	return Country{}, false
}
