package services

import (
	"errors"
	"fmt"
	"strings"

	"github.com/pragati08ps/design-approval-system/internal/models"
	"github.com/pragati08ps/design-approval-system/internal/utils"
	"github.com/pragati08ps/design-approval-system/internal/workflow"
	"github.com/pragati08ps/design-approval-system/pkg/apperrors"
	"gorm.io/gorm"
)

type UserService struct {
	db *gorm.DB
}

func NewUserService(db *gorm.DB) *UserService {
	return &UserService{db: db}
}

type UserListRequest struct {
	ListRequest
	Username string `form:"username"`
	Role     string `form:"role"`
	IsActive *bool  `form:"is_active"`
}

type UserListResponse struct {
	Total    int64         `json:"total"`
	Page     int           `json:"page"`
	PageSize int           `json:"page_size"`
	Items    []models.User `json:"items"`
}

type CreateUserRequest struct {
	Username string `json:"username" binding:"required,min=3,max=100"`
	Password string `json:"password" binding:"required,min=6"`
	Email    string `json:"email" binding:"omitempty,email"`
	FullName string `json:"full_name"`
	Role     string `json:"role" binding:"required"`
}

type UpdateUserRequest struct {
	Email    *string `json:"email" binding:"omitempty,email"`
	FullName *string `json:"full_name"`
	Role     *string `json:"role"`
	IsActive *bool   `json:"is_active"`
	Password *string `json:"password" binding:"omitempty,min=6"`
}

func (s *UserService) List(req *UserListRequest) (*UserListResponse, error) {
	req.normalize()

	var users []models.User
	var total int64

	query := s.db.Model(&models.User{})
	if req.Username != "" {
		query = query.Where("username LIKE ? OR full_name LIKE ?", "%"+req.Username+"%", "%"+req.Username+"%")
	}
	if req.Role != "" {
		query = query.Where("role = ?", req.Role)
	}
	if req.IsActive != nil {
		query = query.Where("is_active = ?", *req.IsActive)
	}

	if err := query.Count(&total).Error; err != nil {
		return nil, err
	}
	if err := query.Offset(req.offset()).Limit(req.PageSize).Order("id ASC").Find(&users).Error; err != nil {
		return nil, err
	}

	return &UserListResponse{
		Total:    total,
		Page:     req.Page,
		PageSize: req.PageSize,
		Items:    users,
	}, nil
}

func (s *UserService) Create(req *CreateUserRequest) (*models.User, error) {
	role, err := workflow.ParseRole(req.Role)
	if err != nil {
		return nil, err
	}
	hashed, err := utils.HashPassword(req.Password)
	if err != nil {
		return nil, err
	}

	user := models.User{
		Username: strings.TrimSpace(req.Username),
		Password: hashed,
		Email:    req.Email,
		FullName: req.FullName,
		Role:     role,
		IsActive: true,
	}
	if err := s.db.Create(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, fmt.Errorf("%w: username %q already exists", apperrors.ErrValidation, user.Username)
		}
		return nil, err
	}
	return &user, nil
}

func (s *UserService) Update(id uint, req *UpdateUserRequest, actorID uint) (*models.User, error) {
	var user models.User
	if err := s.db.First(&user, id).Error; err != nil {
		return nil, notFound(err, "user %d", id)
	}

	updates := map[string]interface{}{}
	if req.Email != nil {
		updates["email"] = *req.Email
	}
	if req.FullName != nil {
		updates["full_name"] = *req.FullName
	}
	if req.Role != nil {
		role, err := workflow.ParseRole(*req.Role)
		if err != nil {
			return nil, err
		}
		if id == actorID && role != user.Role {
			return nil, fmt.Errorf("%w: cannot change your own role", apperrors.ErrValidation)
		}
		updates["role"] = role
	}
	if req.IsActive != nil {
		if id == actorID && !*req.IsActive {
			return nil, fmt.Errorf("%w: cannot disable your own account", apperrors.ErrValidation)
		}
		updates["is_active"] = *req.IsActive
	}
	if req.Password != nil && *req.Password != "" {
		hashed, err := utils.HashPassword(*req.Password)
		if err != nil {
			return nil, err
		}
		updates["password"] = hashed
	}

	if len(updates) > 0 {
		if err := s.db.Model(&user).Updates(updates).Error; err != nil {
			return nil, err
		}
	}
	if err := s.db.First(&user, id).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

func (s *UserService) Delete(id uint, actorID uint) error {
	if id == actorID {
		return fmt.Errorf("%w: cannot delete yourself", apperrors.ErrValidation)
	}
	result := s.db.Delete(&models.User{}, id)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("user %d: %w", id, apperrors.ErrNotFound)
	}
	return nil
}
