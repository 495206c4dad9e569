// Package history aggregates past session reports into per-teacher
// statistics and rankings.
package history

import (
	"context"
	"math"
	"slices"
	"sort"
	"strings"
	"time"

	"github.com/abhisek/classwatch/internal/report"
)

const (
	// DefaultKeep is how many sessions a repository retains.
	DefaultKeep = 100

	gradeWindow  = 10
	recentBriefs = 5

	// UnassignedTeacher collects reports without a teacher ID.
	UnassignedTeacher = "unassigned"
)

// Repo stores final session reports, newest first.
type Repo interface {
	Append(ctx context.Context, r *report.Report) error
	Recent(ctx context.Context, limit int) ([]*report.Report, error)
	ByTeacher(ctx context.Context, teacherID string, limit int) ([]*report.Report, error)
}

// TeacherID derives a stable ID from a display name.
func TeacherID(name string) string {
	return strings.Join(strings.Fields(strings.ToLower(name)), "-")
}

// SubjectTally counts sessions per subject and the topics covered.
type SubjectTally struct {
	Count  int      `json:"count"`
	Topics []string `json:"topics"`
}

// SessionBrief is a one-line summary of a past session.
type SessionBrief struct {
	ID                string    `json:"id"`
	At                time.Time `json:"at"`
	Topic             string    `json:"topic"`
	Subject           string    `json:"subject"`
	Grade             string    `json:"grade"`
	OnTopicPercentage float64   `json:"onTopicPercentage"`
	DurationSeconds   float64   `json:"durationSeconds"`
}

// Brief summarizes r.
func Brief(r *report.Report) SessionBrief {
	return SessionBrief{
		ID:                r.SessionID,
		At:                r.EndedAt,
		Topic:             r.Topic,
		Subject:           r.Subject,
		Grade:             r.Grade,
		OnTopicPercentage: r.OnTopicPercentage,
		DurationSeconds:   r.DurationSeconds,
	}
}

// TeacherStats aggregates one teacher's sessions. Averages cover the most
// recent ten sessions.
type TeacherStats struct {
	TeacherID            string                   `json:"teacherId"`
	TotalSessions        int                      `json:"totalSessions"`
	TotalDurationSeconds float64                  `json:"totalDurationSeconds"`
	AverageOnTopic       float64                  `json:"averageOnTopic"`
	AverageGrade         float64                  `json:"averageGrade"`
	GradeHistory         []float64                `json:"gradeHistory"`
	OnTopicHistory       []float64                `json:"onTopicHistory"`
	Subjects             map[string]*SubjectTally `json:"subjects"`
	LastSessionAt        time.Time                `json:"lastSessionAt"`
	Sessions             []SessionBrief           `json:"sessions"`
}

// BuildTeacherStats folds reports, in any order, into stats keyed by
// teacher ID.
func BuildTeacherStats(reports []*report.Report) map[string]*TeacherStats {
	ordered := slices.Clone(reports)
	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].EndedAt.Before(ordered[j].EndedAt)
	})

	out := make(map[string]*TeacherStats)
	for _, r := range ordered {
		id := r.TeacherID
		if id == "" {
			id = UnassignedTeacher
		}
		st, ok := out[id]
		if !ok {
			st = &TeacherStats{TeacherID: id, Subjects: make(map[string]*SubjectTally)}
			out[id] = st
		}
		st.add(r)
	}
	return out
}

func (st *TeacherStats) add(r *report.Report) {
	st.TotalSessions++
	st.TotalDurationSeconds += r.DurationSeconds
	st.LastSessionAt = r.EndedAt

	st.GradeHistory = pushWindow(st.GradeHistory, report.GradePoints(r.Grade), gradeWindow)
	st.AverageGrade = mean(st.GradeHistory)
	st.OnTopicHistory = pushWindow(st.OnTopicHistory, r.OnTopicPercentage, gradeWindow)
	st.AverageOnTopic = math.Round(mean(st.OnTopicHistory))

	if r.Subject != "" {
		tally, ok := st.Subjects[r.Subject]
		if !ok {
			tally = &SubjectTally{}
			st.Subjects[r.Subject] = tally
		}
		tally.Count++
		if r.Topic != "" && !slices.Contains(tally.Topics, r.Topic) {
			tally.Topics = append(tally.Topics, r.Topic)
		}
	}

	st.Sessions = append([]SessionBrief{Brief(r)}, st.Sessions...)
	if len(st.Sessions) > recentBriefs {
		st.Sessions = st.Sessions[:recentBriefs]
	}
}

// Ranking is a teacher's position among all teachers.
type Ranking struct {
	Rank int `json:"rank"`
	*TeacherStats
	AverageGradeLetter string `json:"averageGradeLetter"`
	Status             string `json:"status"`
}

// Rankings orders teachers by average grade points, best first.
func Rankings(stats map[string]*TeacherStats) []Ranking {
	out := make([]Ranking, 0, len(stats))
	for _, st := range stats {
		if st.TotalSessions < 1 {
			continue
		}
		out = append(out, Ranking{
			TeacherStats:       st,
			AverageGradeLetter: report.GradeFromPoints(st.AverageGrade),
			Status:             RankingStatus(st.AverageOnTopic),
		})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].AverageGrade != out[j].AverageGrade {
			return out[i].AverageGrade > out[j].AverageGrade
		}
		return out[i].TeacherID < out[j].TeacherID
	})
	for i := range out {
		out[i].Rank = i + 1
	}
	return out
}

// RankingStatus labels a teacher by average on-topic percentage.
func RankingStatus(avgOnTopic float64) string {
	switch {
	case avgOnTopic >= 80:
		return "Exemplary"
	case avgOnTopic >= 65:
		return "Good"
	case avgOnTopic >= 50:
		return "Satisfactory"
	default:
		return "Needs Improvement"
	}
}

func pushWindow(s []float64, v float64, n int) []float64 {
	s = append(s, v)
	if len(s) > n {
		s = s[len(s)-n:]
	}
	return s
}

func mean(s []float64) float64 {
	if len(s) == 0 {
		return 0
	}
	sum := 0.0
	for _, v := range s {
		sum += v
	}
	return sum / float64(len(s))
}
