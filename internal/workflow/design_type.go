package workflow

import (
	"fmt"
	"strings"

	"github.com/pragati08ps/design-approval-system/pkg/apperrors"
)

// DesignTypes are the deliverable kinds a design upload may declare.
var DesignTypes = []string{
	"poster",
	"webpage",
	"video",
	"brochure",
	"flyers",
	"logo",
	"nameboard",
	"letterhead",
}

// NormalizeDesignType lowercases raw and checks it against DesignTypes.
func NormalizeDesignType(raw string) (string, error) {
	v := strings.ToLower(strings.TrimSpace(raw))
	for _, t := range DesignTypes {
		if t == v {
			return v, nil
		}
	}
	return "", fmt.Errorf("%w: design_type must be one of %s", apperrors.ErrValidation, strings.Join(DesignTypes, ", "))
}
