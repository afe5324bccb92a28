package db

import (
	"context"
	"fmt"
	"time"

	"social-im/config"

	mysqldriver "github.com/go-sql-driver/mysql"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"
	"gorm.io/gorm/schema"
)

// DSN 根据配置构建MySQL连接字符串
func DSN(cfg config.DatabaseConfig) string {
	dc := mysqldriver.NewConfig()
	dc.User = cfg.Username
	dc.Passwd = cfg.Password
	dc.Net = "tcp"
	dc.Addr = fmt.Sprintf("%s:%d", cfg.Host, cfg.Port)
	dc.DBName = cfg.Database
	dc.ParseTime = true
	dc.Loc = time.UTC
	if cfg.Charset != "" {
		dc.Params = map[string]string{"charset": cfg.Charset}
	}
	return dc.FormatDSN()
}

// GormConfig 公共的GORM配置
func GormConfig(logSQL bool) *gorm.Config {
	level := logger.Warn
	if logSQL {
		level = logger.Info
	}
	return &gorm.Config{
		Logger: logger.Default.LogMode(level),

		// 禁用默认事务，写操作统一走 Gateway.Transaction
		SkipDefaultTransaction: true,

		NamingStrategy: schema.NamingStrategy{
			SingularTable: true,
		},

		// 所有时间统一存储为UTC
		NowFunc: func() time.Time {
			return time.Now().UTC()
		},
	}
}

// InitDB 初始化数据库连接
func InitDB(cfg config.DatabaseConfig) (*gorm.DB, error) {
	gormConfig := GormConfig(cfg.LogSQL)
	gormConfig.PrepareStmt = true

	orm, err := gorm.Open(mysql.Open(DSN(cfg)), gormConfig)
	if err != nil {
		return nil, fmt.Errorf("数据库连接失败: %w", err)
	}

	sqlDB, err := orm.DB()
	if err != nil {
		return nil, fmt.Errorf("获取数据库实例失败: %w", err)
	}

	// 配置连接池
	sqlDB.SetMaxIdleConns(cfg.MaxIdle)
	sqlDB.SetMaxOpenConns(cfg.MaxOpen)
	sqlDB.SetConnMaxLifetime(time.Hour)

	if err := sqlDB.Ping(); err != nil {
		return nil, fmt.Errorf("数据库连接测试失败: %w", err)
	}

	return orm, nil
}

// AutoMigrate 自动迁移数据库表结构
func AutoMigrate(orm *gorm.DB, models ...interface{}) error {
	if orm == nil {
		return fmt.Errorf("数据库未初始化")
	}
	return orm.AutoMigrate(models...)
}

// Seed 插入初始数据，主键已存在则跳过
func Seed(ctx context.Context, orm *gorm.DB, rows interface{}) error {
	return orm.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(rows).Error
}
