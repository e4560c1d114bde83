package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"keyadmin/backend/internal/auth"
	"keyadmin/backend/internal/config"
	"keyadmin/backend/internal/storage/hybrid"
)

func main() {
	if len(os.Args) < 3 {
		fmt.Println("Usage: create-admin <email> <password>")
		os.Exit(1)
	}

	email := os.Args[1]
	password := os.Args[2]

	// 加载配置
	cfg, err := config.Load()
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}

	if cfg.Database.Type == "" {
		fmt.Println("KEYADMIN_DATABASE_TYPE is not set; an in-memory admin would be lost on exit")
		os.Exit(1)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	store, closeStore, err := hybrid.OpenStore(ctx, &cfg.Database, nil)
	if err != nil {
		fmt.Printf("Failed to open storage: %v\n", err)
		os.Exit(1)
	}
	defer closeStore()

	// 只用到注册，不需要令牌管理器和黑名单
	authService := auth.NewService(store, nil, nil)
	if err := authService.Register(ctx, auth.Credentials{Email: email, Password: password}); err != nil {
		fmt.Printf("Failed to create admin: %v\n", err)
		closeStore()
		os.Exit(1)
	}

	fmt.Printf("✓ Admin created successfully!\n")
	fmt.Printf("  Email:    %s\n", email)
	fmt.Printf("  Database: %s (%s)\n", cfg.Database.Type, cfg.Database.Client)
}
