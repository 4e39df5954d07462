package repository

import (
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yukikurage/teamflow/internal/models"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func setupMockRepository(t *testing.T) (TaskRepository, sqlmock.Sqlmock) {
	t.Helper()

	sqlDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { sqlDB.Close() })

	db, err := gorm.Open(mysql.New(mysql.Config{
		Conn:                      sqlDB,
		SkipInitializeWithVersion: true,
	}), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	return NewTaskRepository(db), mock
}

var completeSQL = regexp.QuoteMeta("UPDATE `tasks` SET `completed_at`=?,`status`=?,`updated_at`=? WHERE id = ? AND status <> ?")

func TestCompleteIfOpen_ConditionalUpdate(t *testing.T) {
	repo, mock := setupMockRepository(t)
	completedAt := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)

	mock.ExpectBegin()
	mock.ExpectExec(completeSQL).
		WithArgs(completedAt, "done", completedAt, uint64(7), "done").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	changed, err := repo.CompleteIfOpen(7, completedAt)
	require.NoError(t, err)
	assert.True(t, changed)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCompleteIfOpen_AlreadyDone(t *testing.T) {
	repo, mock := setupMockRepository(t)

	mock.ExpectBegin()
	mock.ExpectExec(completeSQL).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectCommit()

	changed, err := repo.CompleteIfOpen(7, time.Now())
	require.NoError(t, err)
	assert.False(t, changed)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCompleteIfOpen_DatabaseError(t *testing.T) {
	repo, mock := setupMockRepository(t)

	mock.ExpectBegin()
	mock.ExpectExec(completeSQL).WillReturnError(errors.New("connection reset"))
	mock.ExpectRollback()

	changed, err := repo.CompleteIfOpen(7, time.Now())
	assert.Error(t, err)
	assert.False(t, changed)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestReopenIfDone_ConditionalUpdate(t *testing.T) {
	repo, mock := setupMockRepository(t)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("UPDATE `tasks` SET `completed_at`=?,`status`=?,`updated_at`=? WHERE id = ? AND status = ?")).
		WithArgs(nil, "todo", sqlmock.AnyArg(), uint64(7), "done").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	changed, err := repo.ReopenIfDone(7)
	require.NoError(t, err)
	assert.True(t, changed)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUpdate_WritesOnlyNamedColumns(t *testing.T) {
	repo, mock := setupMockRepository(t)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("UPDATE `tasks` SET `title`=?,`updated_at`=? WHERE `id` = ?")).
		WithArgs("renamed", sqlmock.AnyArg(), uint64(7)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	task := &models.Task{ID: 7, Title: "renamed", Status: models.TaskStatusTodo}
	require.NoError(t, repo.Update(task, "title"))
	assert.NoError(t, mock.ExpectationsWereMet())
}
