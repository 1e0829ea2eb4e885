package services

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"returnsdesk/internal/models"
	"returnsdesk/internal/observability"
	"returnsdesk/internal/serviceinterfaces"
	"returnsdesk/internal/storage"
	contextutils "returnsdesk/internal/utils"

	"go.opentelemetry.io/otel/attribute"
)

// ReturnService implements serviceinterfaces.ReturnService
type ReturnService struct {
	repo      ReturnsRepositoryInterface
	store     storage.ImageStore
	policy    *storage.Policy
	directory serviceinterfaces.UserDirectory
	metrics   *observability.Metrics
	logger    *observability.Logger
}

var _ serviceinterfaces.ReturnService = (*ReturnService)(nil)

// NewReturnService wires the returns operations. metrics may be nil.
func NewReturnService(
	repo ReturnsRepositoryInterface,
	store storage.ImageStore,
	policy *storage.Policy,
	directory serviceinterfaces.UserDirectory,
	metrics *observability.Metrics,
	logger *observability.Logger,
) *ReturnService {
	if repo == nil {
		panic("NewReturnService: repo is nil")
	}
	if store == nil {
		panic("NewReturnService: store is nil")
	}
	if logger == nil {
		panic("NewReturnService: logger is nil")
	}
	return &ReturnService{
		repo:      repo,
		store:     store,
		policy:    policy,
		directory: directory,
		metrics:   metrics,
		logger:    logger,
	}
}

// Authenticate resolves the credentials through the user directory
func (s *ReturnService) Authenticate(ctx context.Context, username, password string) (result0 models.Principal, err error) {
	ctx, span := observability.TraceAuthFunction(ctx, "authenticate", observability.AttributeUsername(username))
	defer observability.FinishSpan(span, &err)

	if username == "" || password == "" || s.directory == nil {
		s.metrics.Login(ctx, "failure")
		return models.Principal{}, contextutils.ErrInvalidCredentials
	}

	role, ok := s.directory.Verify(ctx, username, password)
	if !ok {
		s.metrics.Login(ctx, "failure")
		s.logger.Warn(ctx, "Login failed", map[string]interface{}{"username": username})
		return models.Principal{}, contextutils.ErrInvalidCredentials
	}

	s.metrics.Login(ctx, "success")
	span.SetAttributes(observability.AttributeRole(string(role)))
	s.logger.Info(ctx, "Login succeeded", map[string]interface{}{"username": username, "role": string(role)})
	return models.Principal{Username: username, Role: role}, nil
}

// ListReturns returns all returns to any authenticated actor
func (s *ReturnService) ListReturns(ctx context.Context, actor models.Principal) (result0 []models.Return, err error) {
	ctx, span := observability.TraceReturnsFunction(ctx, "list_returns", observability.AttributeUsername(actor.Username))
	defer observability.FinishSpan(span, &err)

	if err := requireAuthenticated(actor); err != nil {
		return nil, err
	}

	list, err := s.repo.List(ctx)
	if err != nil {
		return nil, err
	}
	span.SetAttributes(attribute.Int("returns.count", len(list)))
	return list, nil
}

// CreateReturn validates the form, stores an acceptable image and inserts a pending return.
// Unacceptable images are dropped and the return is created without one.
func (s *ReturnService) CreateReturn(ctx context.Context, actor models.Principal, input models.CreateReturnInput, upload *storage.Upload) (result0 *models.Return, err error) {
	ctx, span := observability.TraceReturnsFunction(ctx, "create_return",
		observability.AttributeUsername(actor.Username),
		attribute.Bool("upload.present", upload != nil),
	)
	defer observability.FinishSpan(span, &err)

	if err := requireAuthenticated(actor); err != nil {
		return nil, err
	}
	if !actor.Role.CanCreate() {
		return nil, contextutils.NewAppError(contextutils.ErrorCodeForbidden, contextutils.SeverityWarn,
			"Only customer service can create returns", string(actor.Role))
	}

	input = trimInput(input)
	if err := contextutils.ValidateStruct(input); err != nil {
		return nil, err
	}

	imagePath, err := s.storeImage(ctx, upload)
	if err != nil {
		return nil, err
	}

	ret, err := s.repo.Insert(ctx, input, models.NullString(imagePath))
	if err != nil {
		if imagePath != "" {
			if rmErr := s.store.Remove(ctx, imagePath); rmErr != nil {
				s.logger.Warn(ctx, "Failed to remove image after insert failure", map[string]interface{}{
					"image_path": imagePath,
					"error":      rmErr.Error(),
				})
			}
		}
		return nil, err
	}

	s.metrics.ReturnCreated(ctx, imagePath != "")
	span.SetAttributes(observability.AttributeReturnID(ret.ID))
	s.logger.Info(ctx, "Return created", map[string]interface{}{
		"return_id":  ret.ID,
		"order_id":   ret.OrderID,
		"created_by": actor.Username,
		"has_image":  imagePath != "",
	})
	return ret, nil
}

// storeImage returns "" when there is no image or it was rejected
func (s *ReturnService) storeImage(ctx context.Context, upload *storage.Upload) (string, error) {
	if upload == nil || upload.Body == nil {
		return "", nil
	}

	checked := *upload
	if s.policy != nil {
		var err error
		checked, err = s.policy.Check(*upload)
		if reason, rejected := storage.RejectionReason(err); rejected {
			s.metrics.ImageRejected(ctx, reason)
			s.logger.Warn(ctx, "Dropped uploaded image", map[string]interface{}{
				"filename": upload.Filename,
				"reason":   reason,
				"details":  err.Error(),
			})
			return "", nil
		}
		if err != nil {
			return "", err
		}
	}

	return s.store.Save(ctx, checked)
}

// UpdateStatus approves or rejects a pending return on behalf of a warehouse user
func (s *ReturnService) UpdateStatus(ctx context.Context, actor models.Principal, id int64, status string) (result0 *models.Return, err error) {
	ctx, span := observability.TraceReturnsFunction(ctx, "update_status",
		observability.AttributeUsername(actor.Username),
		observability.AttributeReturnID(id),
		observability.AttributeStatus(status),
	)
	defer observability.FinishSpan(span, &err)

	if err := requireAuthenticated(actor); err != nil {
		return nil, err
	}
	if !actor.Role.CanDecide() {
		return nil, contextutils.NewAppError(contextutils.ErrorCodeForbidden, contextutils.SeverityWarn,
			"Only warehouse can change return status", string(actor.Role))
	}

	newStatus, ok := models.ParseStatus(status)
	if !ok || !newStatus.IsDecision() {
		return nil, contextutils.NewAppError(contextutils.ErrorCodeValidationFailed, contextutils.SeverityWarn,
			"Validation failed", "status must be Approved or Rejected, got "+strings.TrimSpace(status))
	}
	if id <= 0 {
		return nil, contextutils.NewAppError(contextutils.ErrorCodeValidationFailed, contextutils.SeverityWarn,
			"Validation failed", "id must be a positive integer")
	}

	ret, err := s.repo.UpdateStatusIfPending(ctx, id, newStatus, actor.Username)
	if errors.Is(err, sql.ErrNoRows) {
		exists, existsErr := s.repo.Exists(ctx, id)
		if existsErr != nil {
			return nil, existsErr
		}
		if !exists {
			return nil, contextutils.ErrRecordNotFound
		}
		return nil, contextutils.ErrConflict
	}
	if err != nil {
		return nil, err
	}

	s.metrics.StatusUpdated(ctx, string(newStatus))
	s.logger.Info(ctx, "Return status updated", map[string]interface{}{
		"return_id":   id,
		"status":      string(newStatus),
		"approved_by": actor.Username,
	})
	return ret, nil
}

func requireAuthenticated(actor models.Principal) error {
	if actor.Username == "" || !actor.Role.Valid() {
		return contextutils.ErrUnauthorized
	}
	return nil
}

func trimInput(in models.CreateReturnInput) models.CreateReturnInput {
	in.OrderID = strings.TrimSpace(in.OrderID)
	in.Product = strings.TrimSpace(in.Product)
	in.Brand = strings.TrimSpace(in.Brand)
	in.Platform = strings.TrimSpace(in.Platform)
	in.Reason = strings.TrimSpace(in.Reason)
	in.ReturnDate = strings.TrimSpace(in.ReturnDate)
	return in
}
