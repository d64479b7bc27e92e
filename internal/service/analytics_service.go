package service

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"go.uber.org/zap"

	"github.com/emra-dev/lms-api/internal/dto"
	"github.com/emra-dev/lms-api/internal/models"
	"github.com/emra-dev/lms-api/internal/repository"
	appErrors "github.com/emra-dev/lms-api/pkg/errors"
)

// instructorShare is the fraction of gross revenue paid out to the
// instructor after the platform fee.
const instructorShare = 0.9

// revenueSeriesDays is the length of the dashboard revenue series.
const revenueSeriesDays = 7

type analyticsStore interface {
	InstructorTotals(ctx context.Context, instructorID string) (*repository.InstructorTotals, error)
	RevenueByDay(ctx context.Context, instructorID string, since time.Time) ([]repository.RevenueDay, error)
	TopCourses(ctx context.Context, instructorID string, limit int) ([]repository.CoursePerformance, error)
	StudentTotals(ctx context.Context, userID string) (*repository.StudentTotals, error)
}

type dashboardCache interface {
	Get(ctx context.Context, key string, dest interface{}) error
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
}

type xpReader interface {
	FindByID(ctx context.Context, id string) (*models.User, error)
}

// AnalyticsService computes dashboards. The instructor dashboard is the
// most expensive read in the system and is cached in Redis.
type AnalyticsService struct {
	analytics analyticsStore
	cache     dashboardCache
	users     xpReader
	cacheTTL  time.Duration
	logger    *zap.Logger
}

// NewAnalyticsService constructs AnalyticsService.
func NewAnalyticsService(analytics analyticsStore, cache dashboardCache, users xpReader, cacheTTL time.Duration, logger *zap.Logger) *AnalyticsService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cacheTTL <= 0 {
		cacheTTL = 10 * time.Minute
	}
	return &AnalyticsService{analytics: analytics, cache: cache, users: users, cacheTTL: cacheTTL, logger: logger}
}

// InstructorDashboard aggregates the teacher analytics page. Revenue is
// reported net of the platform share.
func (s *AnalyticsService) InstructorDashboard(ctx context.Context, viewer Viewer) (*dto.InstructorDashboard, error) {
	if viewer.Role != models.RoleTeacher {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "instructor dashboard requires a teacher account")
	}

	key := fmt.Sprintf("analytics:instructor:%s", viewer.UserID)
	if s.cache != nil {
		var cached dto.InstructorDashboard
		err := s.cache.Get(ctx, key, &cached)
		if err == nil {
			return &cached, nil
		}
		if !errors.Is(err, appErrors.ErrCacheMiss) {
			s.logger.Warn("dashboard cache read failed", zap.String("key", key), zap.Error(err))
		}
	}

	totals, err := s.analytics.InstructorTotals(ctx, viewer.UserID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load totals")
	}

	since := time.Now().UTC().AddDate(0, 0, -(revenueSeriesDays - 1)).Truncate(24 * time.Hour)
	days, err := s.analytics.RevenueByDay(ctx, viewer.UserID, since)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load revenue series")
	}

	top, err := s.analytics.TopCourses(ctx, viewer.UserID, 3)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load top courses")
	}

	dashboard := &dto.InstructorDashboard{
		TotalStudents:    totals.TotalStudents,
		TotalCourses:     totals.TotalCourses,
		TotalRevenue:     netRevenue(totals.GrossRevenue),
		AverageRating:    totals.AverageRating,
		RevenueSeries:    buildRevenueSeries(since, days),
		TopCourses:       make([]dto.TopCourse, 0, len(top)),
		PendingQuestions: totals.PendingQuestions,
	}
	for _, course := range top {
		dashboard.TopCourses = append(dashboard.TopCourses, dto.TopCourse{
			CourseID:    course.CourseID,
			Title:       course.Title,
			Enrollments: course.Enrollments,
			Revenue:     netRevenue(course.Revenue),
		})
	}

	if s.cache != nil {
		if err := s.cache.Set(ctx, key, dashboard, s.cacheTTL); err != nil {
			s.logger.Warn("dashboard cache write failed", zap.String("key", key), zap.Error(err))
		}
	}
	return dashboard, nil
}

// StudentStats returns the learner progress overview.
func (s *AnalyticsService) StudentStats(ctx context.Context, viewer Viewer) (*dto.StudentStats, error) {
	totals, err := s.analytics.StudentTotals(ctx, viewer.UserID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load stats")
	}
	user, err := s.users.FindByID(ctx, viewer.UserID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load user")
	}
	return &dto.StudentStats{
		XPPoints:         user.XPPoints,
		EnrolledCourses:  totals.EnrolledCourses,
		CompletedCourses: totals.CompletedCourses,
		CompletedLessons: totals.CompletedLessons,
		Certificates:     totals.Certificates,
		AverageProgress:  totals.AverageProgress,
	}, nil
}

// buildRevenueSeries fills days with no sales with zeroes so the chart
// always spans the full window.
func buildRevenueSeries(since time.Time, days []repository.RevenueDay) []dto.RevenuePoint {
	byDay := make(map[string]float64, len(days))
	for _, day := range days {
		byDay[day.Day.Format("2006-01-02")] = day.Revenue
	}

	series := make([]dto.RevenuePoint, 0, revenueSeriesDays)
	for i := 0; i < revenueSeriesDays; i++ {
		date := since.AddDate(0, 0, i).Format("2006-01-02")
		series = append(series, dto.RevenuePoint{Date: date, Revenue: netRevenue(byDay[date])})
	}
	return series
}

func netRevenue(gross float64) float64 {
	return math.Round(gross*instructorShare*100) / 100
}
