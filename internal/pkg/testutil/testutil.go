// Package testutil 为各包测试提供内存数据库与Redis
package testutil

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/glebarez/sqlite"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"ota-server/internal/model"
	"ota-server/internal/pkg/database"
)

// OpenDB 打开内存SQLite并同步表结构; 单连接使事务串行
func OpenDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	require.NoError(t, database.Migrate(db))
	return db
}

// OpenRedis 启动miniredis
func OpenRedis(t *testing.T) (*redis.Client, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return client, mr
}

// CreateApp 创建应用及指定部署, 部署Key为 "<app>-<deployment>-key"
func CreateApp(t *testing.T, db *gorm.DB, name string, deployments ...string) (*model.App, map[string]*model.Deployment) {
	t.Helper()
	app := &model.App{Name: name}
	require.NoError(t, db.WithContext(context.Background()).Create(app).Error)

	result := make(map[string]*model.Deployment, len(deployments))
	for _, d := range deployments {
		dep := &model.Deployment{AppID: app.ID, Name: d, Key: name + "-" + d + "-key"}
		require.NoError(t, db.Create(dep).Error)
		result[d] = dep
	}
	return app, result
}
