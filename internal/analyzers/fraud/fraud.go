package fraud

import (
	"context"
	"time"

	"github.com/ignite/survey-integrity-scorer/internal/config"
	"github.com/ignite/survey-integrity-scorer/internal/domain"
	"github.com/ignite/survey-integrity-scorer/internal/store"
)

// Analyzer runs the cross-session FraudAnalyzer of §4.4: it reads
// historical aggregates from Store and an optional GeoLookup, and
// combines five sub-scores into one FraudIndicator.
type Analyzer struct {
	store store.Store
	geo   GeoLookup
	cfg   config.FraudConfig
}

// New builds a FraudAnalyzer. geo may be Disabled{} when no
// GeoDBPath is configured.
func New(s store.Store, geo GeoLookup, cfg config.FraudConfig) *Analyzer {
	if geo == nil {
		geo = Disabled{}
	}
	return &Analyzer{store: s, geo: geo, cfg: cfg}
}

// Analyze computes the FraudIndicator for one session. declaredRegion
// is the respondent's self-reported region, if collected; empty skips
// the geo mismatch check.
func (a *Analyzer) Analyze(ctx context.Context, sess *domain.Session, responseTexts []string, declaredRegion string, now time.Time) domain.FraudIndicator {
	ind := domain.FraudIndicator{
		SessionID:    sess.ID,
		SurveyID:     sess.SurveyID,
		PlatformID:   sess.PlatformID,
		RespondentID: sess.RespondentID,
		FlagReasons:  map[string]domain.FraudFlagReason{},
	}

	ipScore := a.ipScore(ctx, sess, now, &ind)
	deviceScore := a.deviceScore(ctx, sess, &ind)
	dupScore := a.duplicateScore(ctx, sess, responseTexts, &ind)
	geoScore := a.geoScore(ctx, sess, declaredRegion, now, &ind)
	velScore := a.velocityScore(ctx, sess, now, &ind)

	ind.IPScore = ipScore
	ind.DeviceScore = deviceScore
	ind.DuplicateScore = dupScore
	ind.GeoScore = geoScore
	ind.VelocityScore = velScore

	w := a.cfg.Weights
	overall := w.IP*ipScore + w.Device*deviceScore + w.Duplicate*dupScore + w.Geo*geoScore + w.Velocity*velScore
	if overall < 0 {
		overall = 0
	}
	if overall > 1 {
		overall = 1
	}
	ind.OverallFraudScore = overall
	ind.IsDuplicate = overall >= a.cfg.DuplicateThreshold

	return ind
}

func (a *Analyzer) ipScore(ctx context.Context, sess *domain.Session, now time.Time, ind *domain.FraudIndicator) float64 {
	total, today, err := a.store.CountSessionsByIP(ctx, sess.IPAddress, now.Add(-24*time.Hour))
	if err != nil {
		ind.FlagReasons["ip"] = domain.FraudFlagUnavailable
		return 0
	}
	var score float64
	switch {
	case total >= 10 || today >= 5:
		score = 0.80
	case total >= 5 || today >= 3:
		score = 0.60
	case total >= 3:
		score = 0.40
	case total == 2:
		score = 0.20
	default:
		score = 0
	}
	if score >= a.cfg.IPReuseThreshold {
		ind.FlagReasons["ip"] = domain.FraudFlagIPReuse
	}
	return score
}

func (a *Analyzer) deviceScore(ctx context.Context, sess *domain.Session, ind *domain.FraudIndicator) float64 {
	if sess.DeviceFingerprint == "" {
		ind.FlagReasons["device"] = domain.FraudFlagUnavailable
		return 0
	}
	distinctRespondents, err := a.store.CountSessionsByFingerprint(ctx, sess.DeviceFingerprint, sess.RespondentID)
	if err != nil {
		ind.FlagReasons["device"] = domain.FraudFlagUnavailable
		return 0
	}
	var score float64
	switch {
	case distinctRespondents >= 5:
		score = 0.90
	case distinctRespondents >= 3:
		score = 0.70
	case distinctRespondents >= 2:
		score = 0.50
	default:
		score = 0
	}
	if score >= a.cfg.DeviceReuseThreshold {
		ind.FlagReasons["device"] = domain.FraudFlagDeviceReuse
	}
	return score
}

func (a *Analyzer) duplicateScore(ctx context.Context, sess *domain.Session, responseTexts []string, ind *domain.FraudIndicator) float64 {
	others, err := a.store.OtherResponseTexts(ctx, sess.SurveyID, sess.ID)
	if err != nil {
		ind.FlagReasons["duplicate"] = domain.FraudFlagUnavailable
		return 0
	}
	var maxSim float64
	for _, text := range responseTexts {
		if sim := MaxSimilarity(text, others); sim > maxSim {
			maxSim = sim
		}
	}
	var score float64
	switch {
	case maxSim >= 0.95:
		score = 1.00
	case maxSim >= 0.85:
		score = 0.80
	case maxSim >= 0.70:
		score = 0.60
	default:
		score = 0
	}
	if score >= a.cfg.DuplicateFlagThreshold {
		ind.FlagReasons["duplicate"] = domain.FraudFlagDuplicateResponses
	}
	return score
}

// geoScore resolves the session's IP to a country and folds in two
// independent signals (§4.4): a mismatch against the respondent's
// declared region (skipped when no locale was observed), and an
// impossible-travel check against the countries resolved for this
// respondent's other sessions in the last 24h. Either signal alone can
// flag the component; impossible travel takes the higher score since
// it's evidence from the store, not a self-reported value that could
// itself be wrong.
func (a *Analyzer) geoScore(ctx context.Context, sess *domain.Session, declaredRegion string, now time.Time, ind *domain.FraudIndicator) float64 {
	result, err := a.geo.Lookup(sess.IPAddress)
	if err != nil {
		ind.FlagReasons["geo"] = domain.FraudFlagUnavailable
		return 0
	}
	ind.ResolvedCountry = result.CountryISO

	var score float64
	if declaredRegion != "" && result.CountryISO != "" && result.CountryISO != declaredRegion {
		score = 0.80
	}

	if result.CountryISO != "" {
		priorCountries, err := a.store.RecentRespondentCountries(ctx, sess.RespondentID, sess.ID, now.Add(-24*time.Hour))
		if err == nil {
			for _, country := range priorCountries {
				if country != "" && country != result.CountryISO {
					score = 1.0
					ind.FlagReasons["geo"] = domain.FraudFlagImpossibleTravel
					break
				}
			}
		}
	}

	if score >= a.cfg.GeoFlagThreshold && ind.FlagReasons["geo"] == "" {
		ind.FlagReasons["geo"] = domain.FraudFlagGeolocation
	}
	return score
}

func (a *Analyzer) velocityScore(ctx context.Context, sess *domain.Session, now time.Time, ind *domain.FraudIndicator) float64 {
	count, err := a.store.CountVelocity(ctx, store.VelocityWindow{
		RespondentID:      sess.RespondentID,
		IPAddress:         sess.IPAddress,
		DeviceFingerprint: sess.DeviceFingerprint,
		SurveyID:          sess.SurveyID,
		Since:             now.Add(-time.Hour),
	})
	if err != nil {
		ind.FlagReasons["velocity"] = domain.FraudFlagUnavailable
		return 0
	}
	perHour := float64(count)
	var score float64
	for _, band := range a.cfg.VelocityBands {
		if perHour >= band.ThresholdPerHour {
			score = band.Score
			break
		}
	}
	if score >= a.cfg.VelocityFlagThreshold {
		ind.FlagReasons["velocity"] = domain.FraudFlagHighVelocity
	}
	return score
}
