package main

import (
	"fmt"
	"log"
	"os"

	"github.com/ikkim/storeops-backend/config"
	"github.com/ikkim/storeops-backend/internal/app/repository"
	"github.com/ikkim/storeops-backend/internal/db"
)

func main() {
	// 명령줄 인자 확인
	if len(os.Args) < 2 {
		log.Fatal("Usage: go run cmd/seed/main.go <xlsx_file_path>")
	}

	filePath := os.Args[1]

	// 설정 로드
	cfg, err := config.Load()
	if err != nil {
		log.Fatal("Failed to load config:", err)
	}

	// DB 연결
	if err := db.Initialize(&cfg.Database); err != nil {
		log.Fatal("Failed to connect to database:", err)
	}
	defer db.Close()

	if err := db.Migrate(); err != nil {
		log.Fatal("Failed to run migrations:", err)
	}

	orderRepo := repository.NewPickupOrderRepository(db.GetDB())

	// XLSX 파일 읽기
	fmt.Printf("Reading XLSX file: %s\n", filePath)
	result, err := readPickupOrdersFromXLSX(filePath)
	if err != nil {
		log.Fatal("Failed to read XLSX:", err)
	}

	fmt.Printf("Total pickup orders to import: %d (skipped rows: %d)\n", len(result.Orders), result.Skipped)
	for _, reason := range result.Problems {
		fmt.Printf("  - %s\n", reason)
	}

	if len(result.Orders) == 0 {
		fmt.Println("Nothing to import.")
		return
	}

	// 사용자 확인
	fmt.Print("Do you want to proceed with the import? (yes/no): ")
	var confirm string
	fmt.Scanln(&confirm)
	if confirm != "yes" && confirm != "y" {
		fmt.Println("Import cancelled.")
		return
	}

	// 배치로 저장
	batchSize := 500
	fmt.Printf("Starting bulk import with batch size: %d\n", batchSize)
	if err := orderRepo.CreateInBatches(result.Orders, batchSize); err != nil {
		log.Fatal("Failed to bulk create pickup orders:", err)
	}

	fmt.Println("Import completed successfully!")
	fmt.Printf("Total pickup orders imported: %d\n", len(result.Orders))
}
