// Package dbtest 为测试提供基于SQLite文件的GORM连接。
package dbtest

import (
	"path/filepath"
	"testing"

	"social-im/pkg/db"

	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

// Open 在 t.TempDir() 下创建SQLite数据库并迁移给定模型
func Open(t testing.TB, models ...interface{}) *gorm.DB {
	t.Helper()

	dsn := filepath.Join(t.TempDir(), "test.db") + "?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)"
	orm, err := gorm.Open(sqlite.Open(dsn), db.GormConfig(false))
	require.NoError(t, err)

	if len(models) > 0 {
		require.NoError(t, db.AutoMigrate(orm, models...))
	}

	t.Cleanup(func() {
		if sqlDB, err := orm.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})
	return orm
}
