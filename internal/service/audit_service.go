package service

import (
	"context"
	"fmt"
	"sort"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/certify-api/internal/models"
	"github.com/noah-isme/certify-api/pkg/config"
	appErrors "github.com/noah-isme/certify-api/pkg/errors"
)

// AuditRepository describes the persistence layer required by AuditService.
type AuditRepository interface {
	Append(ctx context.Context, entry *models.CertificateAuditEntry) error
	ListByCertificateID(ctx context.Context, certificateID string) ([]models.CertificateAuditEntry, error)
	ListValidationsSince(ctx context.Context, since time.Time) ([]models.CertificateAuditEntry, error)
}

// AuditService records the certificate lifecycle trail and derives windowed
// views over it. Appends are best-effort: a logging failure must never block
// issuance or validation.
type AuditService struct {
	repo   AuditRepository
	cache  *CacheService
	cfg    config.AuditConfig
	logger *zap.Logger
}

// NewAuditService constructs an AuditService.
func NewAuditService(repo AuditRepository, cache *CacheService, cfg config.AuditConfig, logger *zap.Logger) *AuditService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.MaxAttemptsPerIP <= 0 {
		cfg.MaxAttemptsPerIP = 100
	}
	if cfg.MaxFailuresPerIP <= 0 {
		cfg.MaxFailuresPerIP = 50
	}
	if cfg.MinAttemptsForRatio <= 0 {
		cfg.MinAttemptsForRatio = 20
	}
	if cfg.FailureRatio <= 0 {
		cfg.FailureRatio = 0.8
	}
	if cfg.StatsWindow <= 0 {
		cfg.StatsWindow = 30 * 24 * time.Hour
	}
	if cfg.AnomalyWindow <= 0 {
		cfg.AnomalyWindow = 24 * time.Hour
	}
	return &AuditService{repo: repo, cache: cache, cfg: cfg, logger: logger}
}

// Record appends an audit entry. Failures are swallowed after logging so the
// calling operation is never disturbed.
func (s *AuditService) Record(ctx context.Context, entry *models.CertificateAuditEntry) {
	if s == nil || s.repo == nil || entry == nil {
		return
	}
	if err := s.repo.Append(ctx, entry); err != nil {
		s.logger.Warn("audit append failed",
			zap.String("action", entry.Action),
			zap.String("certificate_code", entry.CertificateCode),
			zap.Error(err))
	}
}

// History returns every entry for a certificate, newest first.
func (s *AuditService) History(ctx context.Context, certificateID string) ([]models.CertificateAuditEntry, error) {
	entries, err := s.repo.ListByCertificateID(ctx, certificateID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load audit history")
	}
	return entries, nil
}

// ValidationStats aggregates validation activity over the trailing window.
// A zero window falls back to the configured default (30 days).
func (s *AuditService) ValidationStats(ctx context.Context, window time.Duration) (*models.ValidationStats, error) {
	if window <= 0 {
		window = s.cfg.StatsWindow
	}

	cacheKey := fmt.Sprintf("audit:stats:%d", int64(window.Seconds()))
	var cached models.ValidationStats
	if s.cache != nil {
		if hit, err := s.cache.Get(ctx, cacheKey, &cached); err == nil && hit {
			return &cached, nil
		}
	}

	now := time.Now().UTC()
	since := now.Add(-window)
	entries, err := s.repo.ListValidationsSince(ctx, since)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load validation entries")
	}

	stats := &models.ValidationStats{
		From:     since,
		To:       now,
		BySource: make(map[models.ValidationSource]int),
	}
	seenCodes := make(map[string]struct{})
	for _, entry := range entries {
		stats.Total++
		if entry.Action == models.AuditActionValidated {
			stats.Successful++
		} else {
			stats.Failed++
		}
		if entry.CertificateCode != "" {
			if _, ok := seenCodes[entry.CertificateCode]; !ok {
				seenCodes[entry.CertificateCode] = struct{}{}
				stats.DistinctCodes = append(stats.DistinctCodes, entry.CertificateCode)
			}
		}
		if entry.Source != "" {
			stats.BySource[entry.Source]++
		}
	}
	sort.Strings(stats.DistinctCodes)

	if s.cache != nil {
		if err := s.cache.Set(ctx, cacheKey, stats, s.cfg.CacheTTL); err != nil {
			s.logger.Warn("cache validation stats", zap.Error(err))
		}
	}
	return stats, nil
}

// DetectAnomalies groups windowed validation attempts by source IP and flags
// suspicious addresses: too many attempts, too many failures, or a high
// failure ratio over a meaningful sample.
func (s *AuditService) DetectAnomalies(ctx context.Context, window time.Duration) (*models.AnomalyReport, error) {
	if window <= 0 {
		window = s.cfg.AnomalyWindow
	}

	cacheKey := fmt.Sprintf("audit:anomalies:%d", int64(window.Seconds()))
	var cached models.AnomalyReport
	if s.cache != nil {
		if hit, err := s.cache.Get(ctx, cacheKey, &cached); err == nil && hit {
			return &cached, nil
		}
	}

	now := time.Now().UTC()
	since := now.Add(-window)
	entries, err := s.repo.ListValidationsSince(ctx, since)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load validation entries")
	}

	byIP := make(map[string]*models.IPActivity)
	for _, entry := range entries {
		if entry.IPAddress == "" {
			continue
		}
		activity, ok := byIP[entry.IPAddress]
		if !ok {
			activity = &models.IPActivity{IP: entry.IPAddress}
			byIP[entry.IPAddress] = activity
		}
		activity.Attempts++
		if entry.Action == models.AuditActionValidationFailed {
			activity.Failures++
		}
	}

	report := &models.AnomalyReport{
		From:        since,
		To:          now,
		GeneratedAt: now,
	}
	suspicious := make(map[string]struct{})
	for ip, activity := range byIP {
		if activity.Attempts > 0 {
			activity.FailureRatio = float64(activity.Failures) / float64(activity.Attempts)
		}
		if activity.Attempts > s.cfg.MaxAttemptsPerIP {
			report.HighFrequency = append(report.HighFrequency, *activity)
			suspicious[ip] = struct{}{}
		}
		if activity.Failures > s.cfg.MaxFailuresPerIP {
			report.HighFailure = append(report.HighFailure, *activity)
			suspicious[ip] = struct{}{}
		}
		if activity.Attempts >= s.cfg.MinAttemptsForRatio && activity.FailureRatio > s.cfg.FailureRatio {
			suspicious[ip] = struct{}{}
		}
	}

	for ip := range suspicious {
		report.SuspiciousIPs = append(report.SuspiciousIPs, ip)
	}
	sort.Strings(report.SuspiciousIPs)
	sortActivity(report.HighFrequency)
	sortActivity(report.HighFailure)

	if s.cache != nil {
		if err := s.cache.Set(ctx, cacheKey, report, s.cfg.CacheTTL); err != nil {
			s.logger.Warn("cache anomaly report", zap.Error(err))
		}
	}
	return report, nil
}

// InvalidateCached drops every cached audit view so the next read rebuilds
// from the trail.
func (s *AuditService) InvalidateCached(ctx context.Context) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Invalidate(ctx, "audit:*"); err != nil {
		s.logger.Warn("invalidate audit cache", zap.Error(err))
	}
}

func sortActivity(list []models.IPActivity) {
	sort.Slice(list, func(i, j int) bool {
		if list[i].Attempts != list[j].Attempts {
			return list[i].Attempts > list[j].Attempts
		}
		return list[i].IP < list[j].IP
	})
}
