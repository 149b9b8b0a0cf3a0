// Package workflow holds the fixed review pipeline a design project moves
// through and the static table of which role may adjudicate each stage.
// Nothing in here touches storage.
package workflow

import (
	"fmt"

	"github.com/pragati08ps/design-approval-system/pkg/apperrors"
)

// Stage is one step of the project review pipeline.
type Stage string

const (
	StageIntake       Stage = "intake"
	StageRework       Stage = "rework"
	StageReview1      Stage = "review_1"
	StageReview2      Stage = "review_2"
	StageFinalReview  Stage = "final_review"
	StageClientReview Stage = "client_review"
	StageCompleted    Stage = "completed"
)

// Stages lists the pipeline in approve order.
var Stages = []Stage{
	StageIntake,
	StageRework,
	StageReview1,
	StageReview2,
	StageFinalReview,
	StageClientReview,
	StageCompleted,
}

func (s Stage) String() string { return string(s) }

// Valid reports whether s is one of the pipeline stages.
func (s Stage) Valid() bool {
	return s.index() >= 0
}

// Terminal reports whether s is the last stage of the pipeline.
func (s Stage) Terminal() bool {
	return s == StageCompleted
}

func (s Stage) index() int {
	for i, st := range Stages {
		if st == s {
			return i
		}
	}
	return -1
}

func ParseStage(raw string) (Stage, error) {
	s := Stage(raw)
	if !s.Valid() {
		return "", fmt.Errorf("%w: unknown stage %q", apperrors.ErrValidation, raw)
	}
	return s, nil
}

// Action is a reviewer decision on the current stage.
type Action string

const (
	ActionApprove Action = "approve"
	ActionReject  Action = "reject"
)

func ParseAction(raw string) (Action, error) {
	switch Action(raw) {
	case ActionApprove, ActionReject:
		return Action(raw), nil
	}
	return "", fmt.Errorf("%w: %q", apperrors.ErrInvalidAction, raw)
}

// Decision is the value stored on approval records for an action.
func (a Action) Decision() string {
	if a == ActionApprove {
		return "approved"
	}
	return "rejected"
}

// UploadClass distinguishes the two independently versioned artifact kinds.
type UploadClass string

const (
	UploadContent UploadClass = "content"
	UploadDesign  UploadClass = "design"
)

func ParseUploadClass(raw string) (UploadClass, error) {
	switch UploadClass(raw) {
	case UploadContent, UploadDesign:
		return UploadClass(raw), nil
	}
	return "", fmt.Errorf("%w: unknown upload class %q", apperrors.ErrValidation, raw)
}
