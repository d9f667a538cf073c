package service

import (
	"errors"
	"math"
	"quizdesk_backend/internal/model"
	"quizdesk_backend/internal/repository"
	"quizdesk_backend/internal/util"
	"sort"
	"time"

	"gorm.io/gorm"
)

const (
	recentViewLimit  = 10
	topLessonLimit   = 5
	recentViewWindow = 7 * 24 * time.Hour
)

type LessonAnalyticsService struct {
	LessonRepo    repository.LessonRepo
	AnalyticsRepo repository.LessonAnalyticsRepo
	UserRepo      repository.UserRepo
	Now           func() time.Time
}

func NewLessonAnalyticsService(lessonRepo repository.LessonRepo, analyticsRepo repository.LessonAnalyticsRepo, userRepo repository.UserRepo) *LessonAnalyticsService {
	return &LessonAnalyticsService{
		LessonRepo:    lessonRepo,
		AnalyticsRepo: analyticsRepo,
		UserRepo:      userRepo,
		Now:           time.Now,
	}
}

type TrackRequest struct {
	TimeSpent *int  `json:"timeSpent"` // Seconds
	Completed *bool `json:"completed"`
}

type LessonViewDetail struct {
	model.LessonView
	Student *model.UserSummary `json:"student"`
}

type LessonAnalyticsReport struct {
	LessonID         uint               `json:"lessonId"`
	LessonTitle      string             `json:"lessonTitle"`
	TotalViews       int                `json:"totalViews"`
	UniqueViews      int                `json:"uniqueViews"`
	AverageTimeSpent int                `json:"averageTimeSpent"`
	CompletionRate   float64            `json:"completionRate"`
	LastViewed       *time.Time         `json:"lastViewed"`
	Views            []LessonViewDetail `json:"views"`
	RecentViews      []LessonViewDetail `json:"recentViews"`
	ViewsByDate      map[string]int     `json:"viewsByDate"`
}

type LessonRanking struct {
	LessonID       uint    `json:"lessonId"`
	Title          string  `json:"title"`
	UniqueViews    int     `json:"uniqueViews"`
	TotalViews     int     `json:"totalViews"`
	CompletionRate float64 `json:"completionRate"`
}

type AnalyticsOverview struct {
	TotalLessons          int             `json:"totalLessons"`
	PublishedLessons      int             `json:"publishedLessons"`
	TotalViews            int             `json:"totalViews"`
	TotalUniqueViews      int             `json:"totalUniqueViews"`
	AverageTimeSpent      int             `json:"averageTimeSpent"`
	OverallCompletionRate float64         `json:"overallCompletionRate"`
	RecentViews           int64           `json:"recentViews"`
	TopLessons            []LessonRanking `json:"topLessons"`
	LessonsWithAnalytics  int             `json:"lessonsWithAnalytics"`
}

// applyView 合并一次浏览：首次浏览新增记录，之后只刷新时间并覆盖提供的字段
func applyView(analytics *model.LessonAnalytics, views []model.LessonView, studentID uint, req TrackRequest, now time.Time) *model.LessonView {
	var view *model.LessonView
	for i := range views {
		if views[i].StudentID == studentID {
			view = &views[i]
			break
		}
	}

	if view == nil {
		views = append(views, model.LessonView{
			LessonID:  analytics.LessonID,
			StudentID: studentID,
		})
		view = &views[len(views)-1]
		analytics.UniqueViews++
	}

	view.ViewedAt = now
	if req.TimeSpent != nil && *req.TimeSpent >= 0 {
		view.TimeSpent = *req.TimeSpent
	}
	if req.Completed != nil {
		view.Completed = *req.Completed
	}

	analytics.TotalViews++
	analytics.LastViewed = &now

	var totalTime, completed int
	for _, v := range views {
		totalTime += v.TimeSpent
		if v.Completed {
			completed++
		}
	}
	analytics.AverageTimeSpent = float64(totalTime) / float64(len(views))
	analytics.CompletionRate = float64(completed) / float64(len(views)) * 100

	return view
}

// Track 记录学生浏览；课程必须已发布
func (s *LessonAnalyticsService) Track(studentID, lessonID uint, req TrackRequest) (*model.LessonAnalytics, error) {
	lesson, err := s.LessonRepo.FindByID(lessonID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, util.ErrLessonNotPublished
		}
		return nil, err
	}
	if lesson.Status != model.StatusPublished {
		return nil, util.ErrLessonNotPublished
	}

	now := s.Now()
	return s.AnalyticsRepo.Track(lesson.ID, func(analytics *model.LessonAnalytics, views []model.LessonView) (*model.LessonView, error) {
		return applyView(analytics, views, studentID, req, now), nil
	})
}

func (s *LessonAnalyticsService) withStudents(views []model.LessonView) ([]LessonViewDetail, error) {
	ids := make([]uint, 0, len(views))
	for _, v := range views {
		ids = append(ids, v.StudentID)
	}
	students, err := s.UserRepo.FindByIDs(ids)
	if err != nil {
		return nil, err
	}
	byID := make(map[uint]model.UserSummary, len(students))
	for i := range students {
		byID[students[i].ID] = students[i].Summary()
	}

	details := make([]LessonViewDetail, 0, len(views))
	for _, v := range views {
		detail := LessonViewDetail{LessonView: v}
		if summary, ok := byID[v.StudentID]; ok {
			detail.Student = &summary
		}
		details = append(details, detail)
	}
	return details, nil
}

// LessonReport 单节课程统计，课程从未被浏览时各项为零
func (s *LessonAnalyticsService) LessonReport(authorID, lessonID uint) (*LessonAnalyticsReport, error) {
	lesson, err := s.LessonRepo.FindByID(lessonID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, util.ErrLessonNotFound
		}
		return nil, err
	}
	if lesson.AuthorID != authorID {
		return nil, util.ErrLessonNotFound
	}

	report := &LessonAnalyticsReport{
		LessonID:    lesson.ID,
		LessonTitle: lesson.Title,
		Views:       []LessonViewDetail{},
		RecentViews: []LessonViewDetail{},
		ViewsByDate: map[string]int{},
	}

	analytics, err := s.AnalyticsRepo.FindByLesson(lesson.ID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return report, nil
	} else if err != nil {
		return nil, err
	}

	report.TotalViews = analytics.TotalViews
	report.UniqueViews = analytics.UniqueViews
	report.AverageTimeSpent = int(math.Round(analytics.AverageTimeSpent))
	report.CompletionRate = util.Round(analytics.CompletionRate, 2)
	report.LastViewed = analytics.LastViewed

	views, err := s.AnalyticsRepo.FindViews(lesson.ID)
	if err != nil {
		return nil, err
	}
	sort.SliceStable(views, func(i, j int) bool { return views[i].ViewedAt.After(views[j].ViewedAt) })

	details, err := s.withStudents(views)
	if err != nil {
		return nil, err
	}
	report.Views = details
	if len(details) > recentViewLimit {
		report.RecentViews = details[:recentViewLimit]
	} else {
		report.RecentViews = details
	}
	for _, v := range views {
		report.ViewsByDate[v.ViewedAt.Format(util.DateFormat)]++
	}
	return report, nil
}

// Overview 教师名下全部课程的汇总
func (s *LessonAnalyticsService) Overview(authorID uint) (*AnalyticsOverview, error) {
	lessons, err := s.LessonRepo.FindByAuthor(authorID)
	if err != nil {
		return nil, err
	}

	overview := &AnalyticsOverview{
		TotalLessons: len(lessons),
		TopLessons:   []LessonRanking{},
	}
	if len(lessons) == 0 {
		return overview, nil
	}

	ids := make([]uint, 0, len(lessons))
	byID := make(map[uint]model.Lesson, len(lessons))
	for _, l := range lessons {
		ids = append(ids, l.ID)
		byID[l.ID] = l
		if l.Status == model.StatusPublished {
			overview.PublishedLessons++
		}
	}

	analytics, err := s.AnalyticsRepo.FindByLessons(ids)
	if err != nil {
		return nil, err
	}
	overview.LessonsWithAnalytics = len(analytics)

	var weightedTime float64
	var completions int
	rankings := make([]LessonRanking, 0, len(analytics))
	for _, a := range analytics {
		overview.TotalViews += a.TotalViews
		overview.TotalUniqueViews += a.UniqueViews
		weightedTime += a.AverageTimeSpent * float64(a.UniqueViews)
		completions += int(math.Round(a.CompletionRate * float64(a.UniqueViews) / 100))

		lesson := byID[a.LessonID]
		if lesson.Status == model.StatusPublished {
			rankings = append(rankings, LessonRanking{
				LessonID:       a.LessonID,
				Title:          lesson.Title,
				UniqueViews:    a.UniqueViews,
				TotalViews:     a.TotalViews,
				CompletionRate: util.Round(a.CompletionRate, 2),
			})
		}
	}

	if overview.TotalUniqueViews > 0 {
		overview.AverageTimeSpent = int(math.Round(weightedTime / float64(overview.TotalUniqueViews)))
		overview.OverallCompletionRate = util.Round(float64(completions)/float64(overview.TotalUniqueViews)*100, 2)
	}

	sort.SliceStable(rankings, func(i, j int) bool {
		if rankings[i].UniqueViews != rankings[j].UniqueViews {
			return rankings[i].UniqueViews > rankings[j].UniqueViews
		}
		return rankings[i].LessonID < rankings[j].LessonID
	})
	if len(rankings) > topLessonLimit {
		rankings = rankings[:topLessonLimit]
	}
	overview.TopLessons = rankings

	overview.RecentViews, err = s.AnalyticsRepo.CountViewsSince(ids, s.Now().Add(-recentViewWindow))
	if err != nil {
		return nil, err
	}
	return overview, nil
}
