package main

import (
	"context"
	"database/sql"
	"fmt"
	"log"

	"social-im/config"
	"social-im/pkg/db"
	"social-im/pkg/redis"

	_ "github.com/go-sql-driver/mysql"
)

// 子表在前；friendship_status_code 是种子数据，保留
var tables = []string{
	"group_chat_member",
	"message",
	"group_chat",
	"friendship_status",
	"friendship",
	"app_user",
}

func main() {
	cfg := config.LoadConfig()

	conn, err := sql.Open("mysql", db.DSN(cfg.Database))
	if err != nil {
		log.Fatalf("Database connection failed: %v", err)
	}
	defer conn.Close()

	if err := conn.Ping(); err != nil {
		log.Fatalf("Database connection test failed: %v", err)
	}

	fmt.Println("Database connected successfully")
	fmt.Printf("Database: %s\n", cfg.Database.Database)

	// Confirm
	fmt.Printf("\nWARNING: This operation will CLEAR ALL DATA in tables %v!\n", tables)
	fmt.Print("Type 'YES' to confirm: ")
	var confirm string
	fmt.Scanln(&confirm)
	if confirm != "YES" {
		fmt.Println("Operation cancelled")
		return
	}

	_, _ = conn.Exec("SET FOREIGN_KEY_CHECKS=0")

	for _, table := range tables {
		fmt.Printf("Clearing table %s... ", table)
		if _, err := conn.Exec(fmt.Sprintf("DELETE FROM `%s`", table)); err != nil {
			fmt.Printf("Failed: %v\n", err)
		} else {
			fmt.Println("Success")
		}
	}

	fmt.Println("\nResetting auto-increment IDs...")
	for _, table := range []string{"message", "group_chat", "app_user"} {
		fmt.Printf("Resetting %s auto-increment... ", table)
		if _, err := conn.Exec(fmt.Sprintf("ALTER TABLE `%s` AUTO_INCREMENT = 1", table)); err != nil {
			fmt.Printf("Failed: %v\n", err)
		} else {
			fmt.Println("Success")
		}
	}

	_, _ = conn.Exec("SET FOREIGN_KEY_CHECKS=1")

	if cfg.Redis.Enabled {
		clearRedis(cfg.Redis)
	}

	fmt.Println("\nDatabase reset completed!")
	fmt.Println("All table data cleared, table structure preserved")
}

// clearRedis 删除在线状态与未读计数缓存
func clearRedis(rc config.RedisConfig) {
	ctx := context.Background()
	store, err := redis.InitRedis(ctx, rc)
	if err != nil {
		fmt.Printf("Redis connection failed, skipped: %v\n", err)
		return
	}
	defer store.Close()

	if online, err := store.OnlineUsers(ctx); err == nil {
		fmt.Printf("Online users before reset: %d\n", len(online))
	}

	n, err := store.DeleteByPattern(ctx, "im:*")
	if err != nil {
		fmt.Printf("Clearing redis keys failed: %v\n", err)
		return
	}
	fmt.Printf("Cleared %d redis keys\n", n)
}
