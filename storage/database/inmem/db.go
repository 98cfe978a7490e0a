package inmemdb

import (
	"sync"

	"github.com/trezcool/studyplan/core/feedback"
	"github.com/trezcool/studyplan/core/plan"
	"github.com/trezcool/studyplan/core/user"
)

type (
	// DB is a process-local store. Every table is guarded by its own mutex.
	DB struct {
		user     *userTable
		plan     *planTable
		feedback *feedbackTable
	}

	userTable struct {
		table map[string]*user.User
		mutex sync.RWMutex
	}

	planTable struct {
		table map[string]*plan.StudyPlan
		mutex sync.RWMutex
	}

	feedbackTable struct {
		table map[string]*feedback.Feedback
		mutex sync.RWMutex
	}
)

func Open() *DB {
	return &DB{
		user:     &userTable{table: make(map[string]*user.User)},
		plan:     &planTable{table: make(map[string]*plan.StudyPlan)},
		feedback: &feedbackTable{table: make(map[string]*feedback.Feedback)},
	}
}

// Reset empties all tables.
func (db *DB) Reset() {
	db.feedback.mutex.Lock()
	db.feedback.table = make(map[string]*feedback.Feedback)
	db.feedback.mutex.Unlock()

	db.plan.mutex.Lock()
	db.plan.table = make(map[string]*plan.StudyPlan)
	db.plan.mutex.Unlock()

	db.user.mutex.Lock()
	db.user.table = make(map[string]*user.User)
	db.user.mutex.Unlock()
}

// Close is a no-op, for parity with *sqlx.DB.
func (db *DB) Close() error { return nil }
