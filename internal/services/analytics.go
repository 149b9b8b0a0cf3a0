package services

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/pragati08ps/design-approval-system/internal/models"
	"github.com/pragati08ps/design-approval-system/internal/workflow"
	"github.com/pragati08ps/design-approval-system/pkg/apperrors"
	"gorm.io/gorm"
)

type AnalyticsService struct {
	db       *gorm.DB
	calendar *WorkCalendar
	Now      func() time.Time
}

func NewAnalyticsService(db *gorm.DB, calendar *WorkCalendar) *AnalyticsService {
	return &AnalyticsService{db: db, calendar: calendar, Now: time.Now}
}

type DashboardStats struct {
	TotalProjects           int64            `json:"total_projects"`
	ProjectsByStage         map[string]int64 `json:"projects_by_stage"`
	ProjectsByDesignType    map[string]int64 `json:"projects_by_design_type"`
	CompletedProjects       int64            `json:"completed_projects"`
	PostedProjects          int64            `json:"posted_projects"`
	RecentProjects          int64            `json:"recent_projects"`
	TotalTasks              int64            `json:"total_tasks"`
	TasksByStatus           map[string]int64 `json:"tasks_by_status"`
	OverdueTasks            int64            `json:"overdue_tasks"`
	UsersByRole             map[string]int64 `json:"users_by_role"`
	AvgApprovalDays         float64          `json:"avg_approval_days"`
	AvgApprovalBusinessDays float64          `json:"avg_approval_business_days"`
	CalendarCountry         string           `json:"calendar_country"`
}

type groupCount struct {
	GroupKey   string
	GroupCount int64
}

func (s *AnalyticsService) Dashboard(ctx context.Context) (*DashboardStats, error) {
	db := s.db.WithContext(ctx)
	now := s.Now()
	stats := DashboardStats{CalendarCountry: s.calendar.Country()}

	var err error
	if stats.ProjectsByStage, err = countBy(db.Model(&models.Project{}), "current_stage"); err != nil {
		return nil, err
	}
	for _, stage := range workflow.Stages {
		if _, ok := stats.ProjectsByStage[string(stage)]; !ok {
			stats.ProjectsByStage[string(stage)] = 0
		}
		stats.TotalProjects += stats.ProjectsByStage[string(stage)]
	}
	stats.CompletedProjects = stats.ProjectsByStage[string(workflow.StageCompleted)]

	if stats.ProjectsByDesignType, err = countBy(db.Model(&models.Project{}).Where("design_type IS NOT NULL"), "design_type"); err != nil {
		return nil, err
	}
	if err := db.Model(&models.Project{}).Where("posted = ?", true).Count(&stats.PostedProjects).Error; err != nil {
		return nil, err
	}
	if err := db.Model(&models.Project{}).Where("created_at >= ?", now.AddDate(0, 0, -7)).Count(&stats.RecentProjects).Error; err != nil {
		return nil, err
	}

	if stats.TasksByStatus, err = countBy(db.Model(&models.Task{}), "status"); err != nil {
		return nil, err
	}
	for _, c := range stats.TasksByStatus {
		stats.TotalTasks += c
	}
	if err := db.Model(&models.Task{}).
		Where("due_date < ? AND status NOT IN ?", now, []string{models.TaskStatusCompleted, models.TaskStatusCancelled}).
		Count(&stats.OverdueTasks).Error; err != nil {
		return nil, err
	}

	if stats.UsersByRole, err = countBy(db.Model(&models.User{}), "role"); err != nil {
		return nil, err
	}

	stats.AvgApprovalDays, stats.AvgApprovalBusinessDays, err = s.approvalTurnaround(db)
	if err != nil {
		return nil, err
	}
	return &stats, nil
}

// approvalTurnaround averages creation-to-completion time of completed
// projects in calendar days and in working days.
func (s *AnalyticsService) approvalTurnaround(db *gorm.DB) (float64, float64, error) {
	var rows []models.Project
	if err := db.Select("id", "created_at", "actual_completion_date").
		Where("current_stage = ? AND actual_completion_date IS NOT NULL", workflow.StageCompleted).
		Find(&rows).Error; err != nil {
		return 0, 0, err
	}
	if len(rows) == 0 {
		return 0, 0, nil
	}

	var days float64
	var businessDays int
	for _, p := range rows {
		days += p.ActualCompletionDate.Sub(p.CreatedAt).Hours() / 24
		businessDays += s.calendar.BusinessDaysBetween(p.CreatedAt, *p.ActualCompletionDate)
	}
	n := float64(len(rows))
	return round2(days / n), round2(float64(businessDays) / n), nil
}

type TimelinePoint struct {
	Date  string `json:"date"`
	Count int64  `json:"count"`
}

// ProjectTimeline counts project creations per day for the last days days,
// today included, oldest first.
func (s *AnalyticsService) ProjectTimeline(ctx context.Context, days int) ([]TimelinePoint, error) {
	if days <= 0 {
		days = 30
	}
	if days > 365 {
		days = 365
	}
	now := s.Now()
	y, m, d := now.Date()
	first := time.Date(y, m, d, 0, 0, 0, 0, now.Location()).AddDate(0, 0, -(days - 1))

	var created []time.Time
	if err := s.db.WithContext(ctx).Model(&models.Project{}).
		Where("created_at >= ?", first).
		Pluck("created_at", &created).Error; err != nil {
		return nil, err
	}

	buckets := make(map[string]int64, days)
	for _, t := range created {
		buckets[t.In(now.Location()).Format("2006-01-02")]++
	}

	points := make([]TimelinePoint, 0, days)
	for i := 0; i < days; i++ {
		key := first.AddDate(0, 0, i).Format("2006-01-02")
		points = append(points, TimelinePoint{Date: key, Count: buckets[key]})
	}
	return points, nil
}

type UserPerformance struct {
	UserID            uint             `json:"user_id"`
	Username          string           `json:"username"`
	Role              workflow.Role    `json:"role"`
	AssignedTasks     int64            `json:"assigned_tasks"`
	TasksByStatus     map[string]int64 `json:"tasks_by_status"`
	TotalTimeSpentMs  int64            `json:"total_time_spent"`
	ProjectsOwned     int64            `json:"projects_owned"`
	UploadsPublished  int64            `json:"uploads_published"`
	DecisionsRecorded int64            `json:"decisions_recorded"`
}

// UserPerformance summarises one user's work. Callers without analytics
// access may only read their own figures.
func (s *AnalyticsService) UserPerformance(ctx context.Context, actor Actor, userID uint) (*UserPerformance, error) {
	if !actor.Role.CanViewAnalytics() && actor.UserID != userID {
		return nil, fmt.Errorf("performance of user %d: %w", userID, apperrors.ErrForbidden)
	}

	db := s.db.WithContext(ctx)
	var user models.User
	if err := db.First(&user, userID).Error; err != nil {
		return nil, notFound(err, "user %d", userID)
	}

	perf := UserPerformance{UserID: user.ID, Username: user.Username, Role: user.Role}
	assigned := db.Model(&models.TaskAssignee{}).Select("task_id").Where("user_id = ?", userID)

	var err error
	if perf.TasksByStatus, err = countBy(db.Model(&models.Task{}).Where("id IN (?)", assigned), "status"); err != nil {
		return nil, err
	}
	for _, c := range perf.TasksByStatus {
		perf.AssignedTasks += c
	}
	if err := db.Model(&models.Task{}).Where("id IN (?)", assigned).
		Select("COALESCE(SUM(time_spent_ms), 0)").Scan(&perf.TotalTimeSpentMs).Error; err != nil {
		return nil, err
	}
	if err := db.Model(&models.Project{}).Where("owner_id = ?", userID).Count(&perf.ProjectsOwned).Error; err != nil {
		return nil, err
	}
	if err := db.Model(&models.UploadRecord{}).Where("uploaded_by = ?", userID).Count(&perf.UploadsPublished).Error; err != nil {
		return nil, err
	}
	if err := db.Model(&models.ApprovalRecord{}).Where("reviewer_id = ?", userID).Count(&perf.DecisionsRecorded).Error; err != nil {
		return nil, err
	}
	return &perf, nil
}

func countBy(query *gorm.DB, column string) (map[string]int64, error) {
	var rows []groupCount
	if err := query.Select(column + " AS group_key, COUNT(*) AS group_count").Group(column).Scan(&rows).Error; err != nil {
		return nil, err
	}
	out := make(map[string]int64, len(rows))
	for _, r := range rows {
		out[r.GroupKey] = r.GroupCount
	}
	return out, nil
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
