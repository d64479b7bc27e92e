package service

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/emra-dev/lms-api/internal/dto"
	"github.com/emra-dev/lms-api/internal/models"
	appErrors "github.com/emra-dev/lms-api/pkg/errors"
)

type assignmentStore interface {
	FindByID(ctx context.Context, id int64) (*models.Assignment, int64, string, error)
	FindLessonOwner(ctx context.Context, lessonID int64) (int64, string, error)
	UpsertAssignment(ctx context.Context, assignment *models.Assignment) error
	UpsertSubmission(ctx context.Context, submission *models.AssignmentSubmission) error
	FindSubmission(ctx context.Context, id int64) (*models.AssignmentSubmission, error)
	ListSubmissions(ctx context.Context, assignmentID int64) ([]models.AssignmentSubmission, error)
	Grade(ctx context.Context, submissionID int64, grade int, feedback string) error
}

type assignmentNotifier interface {
	Notify(ctx context.Context, userID string, kind models.NotificationType, title, description string, link *string) error
}

// AssignmentService handles submission and grading of written work.
type AssignmentService struct {
	assignments assignmentStore
	enrollments enrollmentChecker
	notifier    assignmentNotifier
	validator   *validator.Validate
	logger      *zap.Logger
}

// NewAssignmentService constructs AssignmentService.
func NewAssignmentService(assignments assignmentStore, enrollments enrollmentChecker, notifier assignmentNotifier, validate *validator.Validate, logger *zap.Logger) *AssignmentService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AssignmentService{
		assignments: assignments,
		enrollments: enrollments,
		notifier:    notifier,
		validator:   validate,
		logger:      logger,
	}
}

// Create attaches an assignment to a lesson the viewer teaches. The lesson
// becomes an assignment lesson; re-creating replaces title and points.
func (s *AssignmentService) Create(ctx context.Context, viewer Viewer, lessonID int64, req dto.CreateAssignmentRequest) (*models.Assignment, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid assignment payload")
	}

	_, instructorID, err := s.assignments.FindLessonOwner(ctx, lessonID)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "lesson not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load lesson")
	}
	if instructorID != viewer.UserID {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "only the course instructor can create assignments")
	}

	assignment := &models.Assignment{
		LessonID:     lessonID,
		Title:        req.Title,
		Instructions: req.Instructions,
		TotalPoints:  req.TotalPoints,
		DueDate:      req.DueDate,
	}
	if err := s.assignments.UpsertAssignment(ctx, assignment); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to store assignment")
	}
	return assignment, nil
}

// Submit stores the student's work, replacing any earlier submission.
func (s *AssignmentService) Submit(ctx context.Context, viewer Viewer, assignmentID int64, req dto.SubmitAssignmentRequest) (*models.AssignmentSubmission, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid submission payload")
	}

	assignment, courseID, instructorID, err := s.findAssignment(ctx, assignmentID)
	if err != nil {
		return nil, err
	}

	enrolled, err := s.enrollments.Exists(ctx, viewer.UserID, courseID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check enrollment")
	}
	if !enrolled {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "enrollment required")
	}

	submission := &models.AssignmentSubmission{
		AssignmentID: assignmentID,
		StudentID:    viewer.UserID,
		Content:      req.Content,
	}
	if err := s.assignments.UpsertSubmission(ctx, submission); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to store submission")
	}

	if s.notifier != nil {
		if err := s.notifier.Notify(ctx, instructorID, models.NotificationGrade, "Nouvelle soumission",
			fmt.Sprintf("Un devoir a été soumis pour %s.", assignment.Title), nil); err != nil {
			s.logger.Warn("submission notification failed", zap.String("instructor_id", instructorID), zap.Error(err))
		}
	}
	return submission, nil
}

// ListSubmissions returns an assignment's submissions for its instructor.
func (s *AssignmentService) ListSubmissions(ctx context.Context, viewer Viewer, assignmentID int64) ([]models.AssignmentSubmission, error) {
	_, _, instructorID, err := s.findAssignment(ctx, assignmentID)
	if err != nil {
		return nil, err
	}
	if instructorID != viewer.UserID {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "only the course instructor can view submissions")
	}
	submissions, err := s.assignments.ListSubmissions(ctx, assignmentID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list submissions")
	}
	return submissions, nil
}

// GradeSubmission records the grade and notifies the student.
func (s *AssignmentService) GradeSubmission(ctx context.Context, viewer Viewer, submissionID int64, req dto.GradeSubmissionRequest) error {
	if err := s.validator.Struct(req); err != nil {
		return appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid grade payload")
	}

	submission, err := s.assignments.FindSubmission(ctx, submissionID)
	if err != nil {
		if err == sql.ErrNoRows {
			return appErrors.Clone(appErrors.ErrNotFound, "submission not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load submission")
	}

	assignment, _, instructorID, err := s.findAssignment(ctx, submission.AssignmentID)
	if err != nil {
		return err
	}
	if instructorID != viewer.UserID {
		return appErrors.Clone(appErrors.ErrForbidden, "only the course instructor can grade")
	}
	if req.Grade > assignment.TotalPoints {
		return appErrors.Clone(appErrors.ErrValidation, "grade exceeds total points")
	}

	if err := s.assignments.Grade(ctx, submissionID, req.Grade, req.Feedback); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to grade submission")
	}

	if s.notifier != nil {
		if err := s.notifier.Notify(ctx, submission.StudentID, models.NotificationGrade, "Devoir noté",
			fmt.Sprintf("Votre devoir %s a été noté: %d/%d.", assignment.Title, req.Grade, assignment.TotalPoints), nil); err != nil {
			s.logger.Warn("grade notification failed", zap.String("student_id", submission.StudentID), zap.Error(err))
		}
	}
	return nil
}

func (s *AssignmentService) findAssignment(ctx context.Context, assignmentID int64) (*models.Assignment, int64, string, error) {
	assignment, courseID, instructorID, err := s.assignments.FindByID(ctx, assignmentID)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, 0, "", appErrors.Clone(appErrors.ErrNotFound, "assignment not found")
		}
		return nil, 0, "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load assignment")
	}
	return assignment, courseID, instructorID, nil
}
