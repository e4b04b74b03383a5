/*
 * @module service/init
 * @description 服务初始化模块，负责数据库连接、迁移、分布式锁与治理服务装配
 * @architecture 分层架构 - 服务层
 * @documentReference ai_docs/backend_requirements.md
 * @stateFlow 应用启动时执行初始化流程
 * @rules 确保所有依赖服务正常启动后才提供API服务；Redis不可用时降级为内存锁
 * @dependencies gorm.io/gorm, gorm.io/driver/postgres
 * @refs ai_docs/model.md
 */

package service

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"datagov-service/service/audit"
	"datagov-service/service/database"
	"datagov-service/service/distributed_lock"
	"datagov-service/service/governance"
	"datagov-service/service/rate_limiter"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

var (
	DB                      *gorm.DB
	GlobalLock              distributed_lock.DistributedLock
	GlobalGovernanceService *governance.GovernanceService
	GlobalQualityScheduler  *governance.QualityScheduler
	GlobalTriggerLimiter    rate_limiter.TriggerLimiter

	// 手工触发限流额度（次/分钟），0表示该层级不启用
	TriggerGlobalPerMinute int
	TriggerActorPerMinute  int
)

func init() {
	initDatabase()
	runMigrations()
	initServices()
}

// initDatabase 初始化数据库连接
func initDatabase() {
	var dsn string

	// 优先使用DATABASE_URL环境变量
	if databaseURL := os.Getenv("DATABASE_URL"); databaseURL != "" {
		dsn = databaseURL
	} else {
		// 使用分离的环境变量构建连接字符串
		host := getEnvWithDefault("DB_HOST", "localhost")
		port := getEnvWithDefault("DB_PORT", "5432")
		user := getEnvWithDefault("DB_USER", "postgres")
		password := getEnvWithDefault("DB_PASSWORD", "postgres")
		dbname := getEnvWithDefault("DB_NAME", "datagov")
		sslmode := getEnvWithDefault("DB_SSLMODE", "disable")
		schema := getEnvWithDefault("DB_SCHEMA", "public")

		dsn = fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=%s search_path=%s TimeZone=Asia/Shanghai",
			host, port, user, password, dbname, sslmode, schema)
	}

	var err error
	DB, err = gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		log.Fatalf("数据库连接失败: %v", err)
	}

	log.Println("数据库连接成功")
}

// getEnvWithDefault 获取环境变量，如果不存在则返回默认值
func getEnvWithDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// intEnv 读取整型环境变量，不存在或非法时返回默认值
func intEnv(key string, defaultValue int) int {
	if raw := os.Getenv(key); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil {
			return n
		}
	}
	return defaultValue
}

// runMigrations 运行数据库迁移
func runMigrations() {
	log.Println("开始运行数据库迁移...")

	if err := database.AutoMigrate(DB); err != nil {
		log.Fatalf("数据库迁移失败: %v", err)
	}
	log.Println("数据库表结构迁移完成")
}

// initServices 初始化服务
func initServices() {
	// 初始化分布式锁，Redis不可用时降级为进程内内存锁
	if redisLock, err := distributed_lock.NewRedisLock(); err != nil {
		log.Printf("Redis分布式锁初始化失败，降级为内存锁: %v", err)
		GlobalLock = distributed_lock.NewMemoryLock()
	} else {
		GlobalLock = redisLock
	}

	GlobalGovernanceService = governance.NewGovernanceService(DB, GlobalLock)

	// 执行器参数
	if raw := os.Getenv("QUALITY_MAX_CONCURRENCY"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil {
			GlobalGovernanceService.Executor().SetMaxConcurrency(n)
		}
	}
	if raw := os.Getenv("QUALITY_RULE_TIMEOUT_SECONDS"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil {
			GlobalGovernanceService.Executor().SetRuleTimeout(time.Duration(n) * time.Second)
		}
	}

	// 审计事件外发（可选）
	if brokers := os.Getenv("KAFKA_BROKERS"); brokers != "" {
		topic := getEnvWithDefault("KAFKA_AUDIT_TOPIC", "datagov.sensitive-access")
		publisher := audit.NewKafkaEventPublisher(strings.Split(brokers, ","), topic)
		GlobalGovernanceService.AuditService().SetEventPublisher(publisher)
		log.Printf("审计事件Kafka外发已启用, topic=%s", topic)
	}

	// 手工触发限流，Redis不可用时降级为进程内计数
	TriggerGlobalPerMinute = intEnv("QUALITY_TRIGGER_GLOBAL_PER_MINUTE", 10)
	TriggerActorPerMinute = intEnv("QUALITY_TRIGGER_ACTOR_PER_MINUTE", 3)
	if redisLimiter, err := rate_limiter.NewRedisTriggerLimiter(); err != nil {
		log.Printf("Redis触发限流器初始化失败，降级为内存限流: %v", err)
		GlobalTriggerLimiter = rate_limiter.NewMemoryTriggerLimiter()
	} else {
		GlobalTriggerLimiter = redisLimiter
	}

	// 定时全量检测调度器
	cronExpr := os.Getenv("QUALITY_CHECK_CRON")
	GlobalQualityScheduler = governance.NewQualityScheduler(GlobalGovernanceService, cronExpr)
	GlobalQualityScheduler.SetDistributedLock(GlobalLock)
	if err := GlobalQualityScheduler.StartScheduler(); err != nil {
		log.Printf("启动质量检测调度器失败: %v", err)
	}

	log.Println("服务初始化完成")
}
