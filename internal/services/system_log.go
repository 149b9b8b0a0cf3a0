package services

import (
	"encoding/json"
	"strconv"
	"time"

	"github.com/pragati08ps/design-approval-system/internal/models"
	"github.com/pragati08ps/design-approval-system/pkg/logger"
	"gorm.io/gorm"
)

var globalDB *gorm.DB

func InitSystemLogger(db *gorm.DB) {
	globalDB = db
}

func LogInfo(module, action, message string, userID *uint, ip, userAgent string, extra interface{}) {
	writeLog(&models.SystemLog{Level: "info", Module: module, Action: action, Message: message, UserID: userID, IP: ip, UserAgent: userAgent}, extra)
}

func LogWarning(module, action, message string, userID *uint, ip, userAgent string, extra interface{}) {
	writeLog(&models.SystemLog{Level: "warning", Module: module, Action: action, Message: message, UserID: userID, IP: ip, UserAgent: userAgent}, extra)
}

func LogError(module, action, message string, userID *uint, ip, userAgent string, extra interface{}) {
	writeLog(&models.SystemLog{Level: "error", Module: module, Action: action, Message: message, UserID: userID, IP: ip, UserAgent: userAgent}, extra)
}

// LogEntity records an info entry attached to a project or task.
func LogEntity(module, action, message string, userID *uint, entityType string, entityID uint, extra interface{}) {
	writeLog(&models.SystemLog{
		Level:      "info",
		Module:     module,
		Action:     action,
		Message:    message,
		UserID:     userID,
		EntityType: entityType,
		EntityID:   entityID,
	}, extra)
}

func writeLog(entry *models.SystemLog, extra interface{}) {
	if globalDB == nil {
		return
	}

	if extra != nil {
		if b, err := json.Marshal(extra); err == nil {
			entry.Extra = string(b)
		}
	}
	entry.CreatedAt = time.Now()

	if err := globalDB.Create(entry).Error; err != nil {
		logger.Warn().Err(err).Str("module", entry.Module).Str("action", entry.Action).Msg("failed to write system log")
	}
}

type SystemLogService struct {
	db *gorm.DB
}

func NewSystemLogService(db *gorm.DB) *SystemLogService {
	return &SystemLogService{db: db}
}

type SystemLogListRequest struct {
	Page       int    `form:"page"`
	PageSize   int    `form:"page_size"`
	Level      string `form:"level"`
	Module     string `form:"module"`
	Action     string `form:"action"`
	EntityType string `form:"entity_type"`
	EntityID   uint   `form:"entity_id"`
	StartDate  string `form:"start_date"`
	EndDate    string `form:"end_date"`
	Search     string `form:"search"`
}

type SystemLogListResponse struct {
	Total    int64              `json:"total"`
	Page     int                `json:"page"`
	PageSize int                `json:"page_size"`
	Items    []models.SystemLog `json:"items"`
}

func (s *SystemLogService) List(req *SystemLogListRequest) (*SystemLogListResponse, error) {
	if req.Page <= 0 {
		req.Page = 1
	}
	if req.PageSize <= 0 || req.PageSize > 100 {
		req.PageSize = 20
	}

	var logs []models.SystemLog
	var total int64

	query := s.db.Model(&models.SystemLog{})

	if req.Level != "" {
		query = query.Where("level = ?", req.Level)
	}
	if req.Module != "" {
		query = query.Where("module = ?", req.Module)
	}
	if req.Action != "" {
		query = query.Where("action LIKE ?", "%"+req.Action+"%")
	}
	if req.EntityType != "" {
		query = query.Where("entity_type = ?", req.EntityType)
		if req.EntityID > 0 {
			query = query.Where("entity_id = ?", req.EntityID)
		}
	}
	if req.StartDate != "" {
		query = query.Where("created_at >= ?", req.StartDate)
	}
	if req.EndDate != "" {
		query = query.Where("created_at <= ?", req.EndDate+" 23:59:59")
	}
	if req.Search != "" {
		query = query.Where("message LIKE ?", "%"+req.Search+"%")
	}

	if err := query.Count(&total).Error; err != nil {
		return nil, err
	}

	offset := (req.Page - 1) * req.PageSize
	if err := query.Offset(offset).Limit(req.PageSize).Order("created_at DESC, id DESC").Find(&logs).Error; err != nil {
		return nil, err
	}

	return &SystemLogListResponse{
		Total:    total,
		Page:     req.Page,
		PageSize: req.PageSize,
		Items:    logs,
	}, nil
}

func (s *SystemLogService) GetModules() ([]string, error) {
	var modules []string
	if err := s.db.Model(&models.SystemLog{}).Distinct("module").Pluck("module", &modules).Error; err != nil {
		return nil, err
	}
	return modules, nil
}

// CleanupOldLogs deletes logs older than the specified number of days
// Returns the number of deleted records
func (s *SystemLogService) CleanupOldLogs(retentionDays int) (int64, error) {
	if retentionDays <= 0 {
		return 0, nil
	}

	cutoffTime := time.Now().AddDate(0, 0, -retentionDays)
	result := s.db.Where("created_at < ?", cutoffTime).Delete(&models.SystemLog{})
	if result.Error != nil {
		return 0, result.Error
	}

	return result.RowsAffected, nil
}

// GetRetentionDays reads log_retention_days from system config, 30 if unset
func (s *SystemLogService) GetRetentionDays() int {
	var cfg models.SystemConfig
	if err := s.db.Where(&models.SystemConfig{Key: "log_retention_days"}).First(&cfg).Error; err != nil {
		return 30
	}

	days, err := strconv.Atoi(cfg.Value)
	if err != nil {
		return 30
	}
	return days
}

func (s *SystemLogService) SetRetentionDays(days int) error {
	return NewSystemConfigService(s.db).Set("log_retention_days", strconv.Itoa(days))
}

// RunCleanup applies the configured retention once.
func (s *SystemLogService) RunCleanup() (int64, error) {
	retentionDays := s.GetRetentionDays()
	if retentionDays <= 0 {
		logger.Info().Msg("system log cleanup disabled (retention_days <= 0)")
		return 0, nil
	}

	deleted, err := s.CleanupOldLogs(retentionDays)
	if err != nil {
		return 0, err
	}

	if deleted > 0 {
		logger.Info().Int64("deleted", deleted).Int("retention_days", retentionDays).Msg("cleaned up old system logs")
	}
	return deleted, nil
}
