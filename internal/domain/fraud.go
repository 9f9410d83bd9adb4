package domain

// FraudFlagReason is a structured reason key attached to a
// FraudIndicator when a sub-score crosses its flag threshold (§4.4).
type FraudFlagReason string

const (
	FraudFlagIPReuse            FraudFlagReason = "ip_reuse"
	FraudFlagDeviceReuse        FraudFlagReason = "device_reuse"
	FraudFlagDuplicateResponses FraudFlagReason = "duplicate_responses"
	FraudFlagGeolocation        FraudFlagReason = "geolocation"
	FraudFlagImpossibleTravel   FraudFlagReason = "impossible_travel"
	FraudFlagHighVelocity       FraudFlagReason = "high_velocity"
	FraudFlagUnavailable        FraudFlagReason = "unavailable"
)

// FraudIndicator is a per-session fraud record (§3), denormalized with
// the hierarchical fields so aggregation is index-only.
type FraudIndicator struct {
	SessionID    string
	SurveyID     string
	PlatformID   string
	RespondentID string

	OverallFraudScore float64
	IsDuplicate       bool

	IPScore        float64
	DeviceScore    float64
	DuplicateScore float64
	GeoScore       float64
	VelocityScore  float64

	// ResolvedCountry is the country ISO code the geo lookup resolved
	// for this session's IP, persisted so a later session from the
	// same respondent can run the impossible-travel comparison against
	// it (§4.4). Empty when the geo lookup was unavailable or disabled.
	ResolvedCountry string

	// FlagReasons maps each flagged component name to the reason key;
	// a component that failed its cross-session lookup is recorded as
	// "unavailable" rather than silently scored 0 without a trace.
	FlagReasons map[string]FraudFlagReason
}
