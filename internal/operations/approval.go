package operations

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"institute/portal/internal/model"
)

// approvedStatus is the terminal status an approval moves a request of
// kind to.
func approvedStatus(kind model.RequestKind) (model.RequestStatus, bool) {
	switch kind {
	case model.RequestEnrollment:
		return model.StatusApproved, true
	case model.RequestPayment:
		return model.StatusCompleted, true
	default:
		return "", false
	}
}

func validKind(kind model.RequestKind) *Error {
	if _, ok := approvedStatus(kind); !ok {
		return validationError(ErrMissingFields, "unknown request kind", FieldError{Field: "kind", Code: "oneof"})
	}
	return nil
}

// RequestEnrollment files a pending course enrollment for a student and
// notifies the administrators.
func (s *Service) RequestEnrollment(ctx context.Context, studentID, courseID string) (model.Request, error) {
	if err := requireUUIDs("student_id", studentID, "course_id", courseID); err != nil {
		return model.Request{}, err
	}
	req := model.Request{
		ID:        uuid.NewString(),
		Kind:      model.RequestEnrollment,
		StudentID: studentID,
		CourseID:  courseID,
		Status:    model.StatusPending,
		CreatedAt: s.now().UTC(),
	}
	note := s.newNotification(model.RoleAdmin, "", "New enrollment request",
		"A student requested enrollment in a course and is waiting for review.")
	return s.createRequest(ctx, req, note)
}

// SubmitPayment records a pending fee payment (amount in minor units) for
// an administrator to confirm.
func (s *Service) SubmitPayment(ctx context.Context, studentID string, amount int64, reference string) (model.Request, error) {
	if err := requireUUIDs("student_id", studentID); err != nil {
		return model.Request{}, err
	}
	var fields []FieldError
	if amount <= 0 {
		fields = append(fields, FieldError{Field: "amount", Code: "gt"})
	}
	reference = strings.TrimSpace(reference)
	if reference == "" {
		fields = append(fields, FieldError{Field: "reference", Code: "required"})
	}
	if len(fields) > 0 {
		return model.Request{}, validationError(ErrInvalidAmount, "payment needs a positive amount and a reference", fields...)
	}
	req := model.Request{
		ID:        uuid.NewString(),
		Kind:      model.RequestPayment,
		StudentID: studentID,
		Amount:    amount,
		Reference: reference,
		Status:    model.StatusPending,
		CreatedAt: s.now().UTC(),
	}
	note := s.newNotification(model.RoleAdmin, "", "New payment submitted",
		fmt.Sprintf("Payment %s is waiting for confirmation.", reference))
	return s.createRequest(ctx, req, note)
}

func (s *Service) createRequest(ctx context.Context, req model.Request, note model.Notification) (model.Request, error) {
	created, err := s.store.CreateRequest(ctx, req, note)
	if err != nil {
		switch {
		case errors.Is(err, model.ErrDuplicate):
			return model.Request{}, &Error{Kind: KindConflict, Code: ErrDuplicateRequest,
				Message: "a pending request already exists", Err: err}
		case errors.Is(err, model.ErrNotFound):
			code := ErrReferenceNotFound
			if req.Kind == model.RequestEnrollment {
				code = ErrCourseNotFound
			}
			return model.Request{}, &Error{Kind: KindNotFound, Code: code,
				Message: "the referenced course or student does not exist", Err: err}
		default:
			return model.Request{}, persistenceError(err)
		}
	}
	s.publish(ctx, note)
	return created, nil
}

// Approve moves a pending request to its approved terminal status
// (approved for enrollments, completed for payments).
func (s *Service) Approve(ctx context.Context, kind model.RequestKind, requestID, actorID, remarks string) (model.Request, error) {
	to, ok := approvedStatus(kind)
	if !ok {
		return model.Request{}, validKind(kind)
	}
	return s.transition(ctx, model.Transition{
		Kind:      kind,
		RequestID: requestID,
		ActorID:   actorID,
		To:        to,
		Remarks:   strings.TrimSpace(remarks),
	})
}

// Reject moves a pending request to rejected. A reason is mandatory.
func (s *Service) Reject(ctx context.Context, kind model.RequestKind, requestID, actorID, remarks string) (model.Request, error) {
	if err := validKind(kind); err != nil {
		return model.Request{}, err
	}
	remarks = strings.TrimSpace(remarks)
	if remarks == "" {
		return model.Request{}, validationError(ErrRemarksRequired, "a reason is required to reject a request",
			FieldError{Field: "remarks", Code: "required"})
	}
	return s.transition(ctx, model.Transition{
		Kind:      kind,
		RequestID: requestID,
		ActorID:   actorID,
		To:        model.StatusRejected,
		Remarks:   remarks,
	})
}

func (s *Service) transition(ctx context.Context, t model.Transition) (model.Request, error) {
	if err := requireUUIDs("request_id", t.RequestID, "actor_id", t.ActorID); err != nil {
		return model.Request{}, err
	}
	t.At = s.now().UTC()

	updated, note, err := s.store.TransitionRequest(ctx, t, func(req model.Request) model.Notification {
		title, message := outcomeMessage(req)
		return s.newNotification(model.RoleStudent, req.StudentID, title, message)
	})
	if err != nil {
		switch {
		case errors.Is(err, model.ErrNotFound):
			return model.Request{}, &Error{Kind: KindNotFound, Code: ErrRequestNotFound, Message: "request not found", Err: err}
		case errors.Is(err, model.ErrNotPending):
			return model.Request{}, &Error{Kind: KindInvalidTransition, Code: ErrRequestNotPending,
				Message: "request has already been processed", Err: err}
		default:
			return model.Request{}, persistenceError(err)
		}
	}
	s.publish(ctx, note)
	return updated, nil
}

func outcomeMessage(req model.Request) (string, string) {
	var title, message string
	switch req.Kind {
	case model.RequestEnrollment:
		if req.Status == model.StatusRejected {
			title, message = "Enrollment rejected", "Your course enrollment request was rejected."
		} else {
			title, message = "Enrollment approved", "Your course enrollment request was approved."
		}
	case model.RequestPayment:
		if req.Status == model.StatusRejected {
			title, message = "Payment rejected", fmt.Sprintf("Your payment %s was rejected.", req.Reference)
		} else {
			title, message = "Payment confirmed", fmt.Sprintf("Your payment %s was confirmed.", req.Reference)
		}
	}
	if req.Remarks != "" {
		message += " Remarks: " + req.Remarks
	}
	return title, message
}

func (s *Service) GetRequest(ctx context.Context, kind model.RequestKind, requestID string) (model.Request, error) {
	if err := validKind(kind); err != nil {
		return model.Request{}, err
	}
	if err := requireUUIDs("request_id", requestID); err != nil {
		return model.Request{}, err
	}
	req, err := s.store.GetRequest(ctx, kind, requestID)
	if err != nil {
		if errors.Is(err, model.ErrNotFound) {
			return model.Request{}, &Error{Kind: KindNotFound, Code: ErrRequestNotFound, Message: "request not found", Err: err}
		}
		return model.Request{}, persistenceError(err)
	}
	return req, nil
}

// ListRequests lists requests of kind, optionally filtered by status.
func (s *Service) ListRequests(ctx context.Context, kind model.RequestKind, status model.RequestStatus) ([]model.Request, error) {
	if err := validKind(kind); err != nil {
		return nil, err
	}
	switch status {
	case "", model.StatusPending, model.StatusRejected:
	case model.StatusApproved, model.StatusCompleted:
		if want, _ := approvedStatus(kind); want != status {
			return nil, validationError(ErrInvalidStatus, "status does not apply to this request kind",
				FieldError{Field: "status", Code: "oneof"})
		}
	default:
		return nil, validationError(ErrInvalidStatus, "unknown status", FieldError{Field: "status", Code: "oneof"})
	}
	reqs, err := s.store.ListRequests(ctx, kind, status)
	if err != nil {
		return nil, persistenceError(err)
	}
	return reqs, nil
}
