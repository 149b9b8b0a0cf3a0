package workflow

import (
	"fmt"

	"github.com/pragati08ps/design-approval-system/pkg/apperrors"
)

// ErrTerminal is returned when approving a project that already completed.
var ErrTerminal = fmt.Errorf("%w: project is already completed", apperrors.ErrStageMismatch)

// approvers maps every stage to the single role allowed to approve or reject it.
// The terminal stage has no approver.
var approvers = map[Stage]Role{
	StageIntake:       RoleDigitalMarketer,
	StageRework:       RoleDesigner,
	StageReview1:      RoleFrontendDeveloper,
	StageReview2:      RoleManager,
	StageFinalReview:  RoleAdmin,
	StageClientReview: RoleClient,
}

// ApproverOf returns the role that adjudicates stage, if any.
func ApproverOf(stage Stage) (Role, bool) {
	r, ok := approvers[stage]
	return r, ok
}

// NextStage computes where a project goes after action at current.
// Approve advances by one and stays put at the end; reject always restarts
// production at rework.
func NextStage(current Stage, action Action) (Stage, error) {
	idx := current.index()
	if idx < 0 {
		return "", fmt.Errorf("%w: unknown stage %q", apperrors.ErrValidation, current)
	}

	switch action {
	case ActionApprove:
		if current.Terminal() {
			return current, nil
		}
		return Stages[idx+1], nil
	case ActionReject:
		return StageRework, nil
	}
	return "", fmt.Errorf("%w: %q", apperrors.ErrInvalidAction, action)
}

// CanAct reports whether role may take action at stage. Approve and reject
// share the same table.
func CanAct(role Role, stage Stage, action Action) bool {
	if action != ActionApprove && action != ActionReject {
		return false
	}
	approver, ok := approvers[stage]
	return ok && approver == role
}

// RequestTransition validates a reviewer decision against the project's
// current stage and returns the stage to move to. It has no side effects.
func RequestTransition(current Stage, role Role, action Action) (Stage, error) {
	if action != ActionApprove && action != ActionReject {
		return "", fmt.Errorf("%w: %q", apperrors.ErrInvalidAction, action)
	}
	if !current.Valid() {
		return "", fmt.Errorf("%w: unknown stage %q", apperrors.ErrValidation, current)
	}
	if action == ActionApprove && current.Terminal() {
		return "", ErrTerminal
	}
	if !CanAct(role, current, action) {
		return "", fmt.Errorf("%w: role %s cannot %s at stage %s", apperrors.ErrForbidden, role, action, current)
	}
	return NextStage(current, action)
}

// AfterUpload is the stage a project moves to once a version of class has
// been published.
func AfterUpload(class UploadClass) Stage {
	if class == UploadDesign {
		return StageReview1
	}
	return StageRework
}

// CheckUpload verifies that a publish of class is accepted while the project
// sits at stage. Content is taken at intake and during rework; designs only
// during rework.
func CheckUpload(stage Stage, class UploadClass) error {
	switch class {
	case UploadContent:
		if stage == StageIntake || stage == StageRework {
			return nil
		}
	case UploadDesign:
		if stage == StageRework {
			return nil
		}
	default:
		return fmt.Errorf("%w: unknown upload class %q", apperrors.ErrValidation, class)
	}
	return fmt.Errorf("%w: %s upload not accepted at stage %s", apperrors.ErrStageMismatch, class, stage)
}
