package service

import (
	"context"
	"database/sql"
	"fmt"
	"math"
	"strconv"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/emra-dev/lms-api/internal/dto"
	"github.com/emra-dev/lms-api/internal/models"
	appErrors "github.com/emra-dev/lms-api/pkg/errors"
)

type enrollmentStore interface {
	GetOrCreate(ctx context.Context, userID string, courseID int64) (*models.Enrollment, bool, error)
	Find(ctx context.Context, userID string, courseID int64) (*models.Enrollment, error)
	Exists(ctx context.Context, userID string, courseID int64) (bool, error)
	ListByUser(ctx context.Context, userID string) ([]models.EnrollmentDetail, error)
	UpdateProgress(ctx context.Context, userID string, courseID int64, progress int) error
}

type progressStore interface {
	Toggle(ctx context.Context, userID string, lessonID int64) (bool, error)
	MarkComplete(ctx context.Context, userID string, lessonID int64) (bool, error)
	CountCompleted(ctx context.Context, userID string, courseID int64) (int, error)
}

type lessonResolver interface {
	FindLesson(ctx context.Context, lessonID int64) (*models.Lesson, int64, string, error)
	CountLessons(ctx context.Context, courseID int64) (int, error)
}

type quizStore interface {
	FindByID(ctx context.Context, id int64) (*models.Quiz, int64, string, error)
	CorrectChoices(ctx context.Context, quizID int64) (map[int64][]int64, error)
	CountQuestions(ctx context.Context, quizID int64) (int, error)
	CreateAttempt(ctx context.Context, attempt *models.QuizAttempt) error
	ListAttempts(ctx context.Context, userID string, quizID int64) ([]models.QuizAttempt, error)
}

type xpStore interface {
	AddXP(ctx context.Context, userID string, points int) (int, error)
}

type certificateStore interface {
	GetOrCreate(ctx context.Context, userID string, courseID int64) (*models.Certificate, bool, error)
}

type learningNotifier interface {
	Notify(ctx context.Context, userID string, kind models.NotificationType, title, description string, link *string) error
}

// LearningConfig holds XP reward tuning.
type LearningConfig struct {
	LessonXP     int
	MaxManualXP  int
	PassingRatio float64
}

// LearningService drives the student side: enrollment in free courses,
// lesson completion, quiz grading and XP rewards.
type LearningService struct {
	courses      courseReader
	enrollments  enrollmentStore
	progress     progressStore
	lessons      lessonResolver
	quizzes      quizStore
	users        xpStore
	certificates certificateStore
	notifier     learningNotifier
	cfg          LearningConfig
	validator    *validator.Validate
	logger       *zap.Logger
}

// NewLearningService constructs LearningService.
func NewLearningService(courses courseReader, enrollments enrollmentStore, progress progressStore, lessons lessonResolver, quizzes quizStore, users xpStore, certificates certificateStore, notifier learningNotifier, cfg LearningConfig, validate *validator.Validate, logger *zap.Logger) *LearningService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.LessonXP <= 0 {
		cfg.LessonXP = 50
	}
	if cfg.MaxManualXP <= 0 {
		cfg.MaxManualXP = 100
	}
	if cfg.PassingRatio <= 0 || cfg.PassingRatio > 1 {
		cfg.PassingRatio = 0.6
	}
	return &LearningService{
		courses:      courses,
		enrollments:  enrollments,
		progress:     progress,
		lessons:      lessons,
		quizzes:      quizzes,
		users:        users,
		certificates: certificates,
		notifier:     notifier,
		cfg:          cfg,
		validator:    validate,
		logger:       logger,
	}
}

// Enroll joins a free course. Paid courses go through the payment flow.
func (s *LearningService) Enroll(ctx context.Context, viewer Viewer, courseID int64) (*models.Enrollment, error) {
	course, err := s.courses.FindByID(ctx, courseID)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "course not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load course")
	}

	price := course.Price
	if course.DiscountPrice != nil && *course.DiscountPrice > 0 && *course.DiscountPrice < price {
		price = *course.DiscountPrice
	}
	if price > 0 {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "paid course requires purchase")
	}

	enrollment, created, err := s.enrollments.GetOrCreate(ctx, viewer.UserID, courseID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to enroll")
	}
	if created && s.notifier != nil {
		link := fmt.Sprintf("/courses/%d", courseID)
		if err := s.notifier.Notify(ctx, viewer.UserID, models.NotificationCourse, "Inscription réussie",
			fmt.Sprintf("Vous êtes inscrit au cours %s.", course.Title), &link); err != nil {
			s.logger.Warn("enrollment notification failed", zap.String("user_id", viewer.UserID), zap.Error(err))
		}
	}
	return enrollment, nil
}

// ListEnrollments returns the caller's enrollments.
func (s *LearningService) ListEnrollments(ctx context.Context, viewer Viewer) ([]models.EnrollmentDetail, error) {
	enrollments, err := s.enrollments.ListByUser(ctx, viewer.UserID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list enrollments")
	}
	return enrollments, nil
}

// ToggleLessonCompletion flips lesson state, adjusts XP symmetrically and
// recomputes course progress. Reaching full progress issues a certificate.
func (s *LearningService) ToggleLessonCompletion(ctx context.Context, viewer Viewer, lessonID int64) (*dto.ToggleCompletionResult, error) {
	_, courseID, _, err := s.lessons.FindLesson(ctx, lessonID)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "lesson not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load lesson")
	}

	enrolled, err := s.enrollments.Exists(ctx, viewer.UserID, courseID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check enrollment")
	}
	if !enrolled {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "enrollment required")
	}

	completed, err := s.progress.Toggle(ctx, viewer.UserID, lessonID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to toggle lesson")
	}

	xpDelta := s.cfg.LessonXP
	if !completed {
		xpDelta = -s.cfg.LessonXP
	}
	if _, err := s.users.AddXP(ctx, viewer.UserID, xpDelta); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update xp")
	}

	progress, err := s.recomputeProgress(ctx, viewer.UserID, courseID)
	if err != nil {
		return nil, err
	}

	result := &dto.ToggleCompletionResult{
		LessonID:           lessonID,
		Completed:          completed,
		XPAwarded:          xpDelta,
		ProgressPercentage: progress,
	}

	if progress >= 100 {
		_, issued, err := s.certificates.GetOrCreate(ctx, viewer.UserID, courseID)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to issue certificate")
		}
		result.CertificateIssued = issued
		if issued && s.notifier != nil {
			link := "/certificates"
			if err := s.notifier.Notify(ctx, viewer.UserID, models.NotificationAchievement, "Félicitations",
				"Vous avez terminé le cours. Votre certificat est disponible.", &link); err != nil {
				s.logger.Warn("certificate notification failed", zap.String("user_id", viewer.UserID), zap.Error(err))
			}
		}
	}
	return result, nil
}

// SubmitQuiz grades one attempt. A pass marks the quiz's lesson complete;
// the XP reward is granted when the lesson first completes, so retakes
// and manual toggles cannot double-award.
func (s *LearningService) SubmitQuiz(ctx context.Context, viewer Viewer, quizID int64, req dto.SubmitQuizRequest) (*dto.SubmitQuizResult, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid quiz submission")
	}

	quiz, courseID, _, err := s.quizzes.FindByID(ctx, quizID)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "quiz not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load quiz")
	}

	enrolled, err := s.enrollments.Exists(ctx, viewer.UserID, courseID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check enrollment")
	}
	if !enrolled {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "enrollment required")
	}

	total, err := s.quizzes.CountQuestions(ctx, quizID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load quiz")
	}
	if total == 0 {
		return nil, appErrors.Clone(appErrors.ErrValidation, "quiz has no questions")
	}
	correct, err := s.quizzes.CorrectChoices(ctx, quizID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load quiz")
	}

	score := 0
	for questionID, correctChoices := range correct {
		chosen, answered := req.Answers[strconv.FormatInt(questionID, 10)]
		if !answered {
			continue
		}
		for _, choiceID := range correctChoices {
			if chosen == choiceID {
				score++
				break
			}
		}
	}

	percentage := float64(score) / float64(total) * 100
	passed := float64(score)/float64(total) >= s.cfg.PassingRatio

	xpRewarded := 0
	newlyCompleted := false
	if passed {
		newlyCompleted, err = s.progress.MarkComplete(ctx, viewer.UserID, quiz.LessonID)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update lesson progress")
		}
		if newlyCompleted {
			if quiz.XPReward > 0 {
				if _, err := s.users.AddXP(ctx, viewer.UserID, quiz.XPReward); err != nil {
					return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to award xp")
				}
				xpRewarded = quiz.XPReward
			}
			if _, err := s.recomputeProgress(ctx, viewer.UserID, courseID); err != nil {
				return nil, err
			}
		}
	}

	attempt := &models.QuizAttempt{UserID: viewer.UserID, QuizID: quizID, Score: score, TotalQuestions: total}
	if err := s.quizzes.CreateAttempt(ctx, attempt); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to record attempt")
	}

	return &dto.SubmitQuizResult{
		Score:          score,
		TotalQuestions: total,
		Percentage:     percentage,
		Passed:         passed,
		XPRewarded:     xpRewarded,
		NewlyCompleted: newlyCompleted,
	}, nil
}

// ListAttempts returns the caller's attempts for a quiz.
func (s *LearningService) ListAttempts(ctx context.Context, viewer Viewer, quizID int64) ([]models.QuizAttempt, error) {
	attempts, err := s.quizzes.ListAttempts(ctx, viewer.UserID, quizID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list attempts")
	}
	return attempts, nil
}

// AddXP grants bonus points, clamped to the per-call maximum.
func (s *LearningService) AddXP(ctx context.Context, viewer Viewer, req dto.AddXPRequest) (int, error) {
	if err := s.validator.Struct(req); err != nil {
		return 0, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid xp payload")
	}
	points := req.Points
	if points > s.cfg.MaxManualXP {
		points = s.cfg.MaxManualXP
	}
	total, err := s.users.AddXP(ctx, viewer.UserID, points)
	if err != nil {
		return 0, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to add xp")
	}
	return total, nil
}

func (s *LearningService) recomputeProgress(ctx context.Context, userID string, courseID int64) (float64, error) {
	totalLessons, err := s.lessons.CountLessons(ctx, courseID)
	if err != nil {
		return 0, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to count lessons")
	}
	if totalLessons == 0 {
		return 0, nil
	}
	done, err := s.progress.CountCompleted(ctx, userID, courseID)
	if err != nil {
		return 0, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to count progress")
	}

	progress := int(math.Round(float64(done) / float64(totalLessons) * 100))
	if progress > 100 {
		progress = 100
	}
	if err := s.enrollments.UpdateProgress(ctx, userID, courseID, progress); err != nil {
		return 0, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to store progress")
	}
	return float64(progress), nil
}
