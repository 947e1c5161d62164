// 求人掲示板サービスのエントリポイント。
// 求人の投稿・応募と、Cookieベースのセッショントークンによる認証を提供する。
package main

import (
	"log"
	"os"

	"github.com/joho/godotenv"

	"github.com/nao1215/jobquest/internal/jobboard"
)

func main() {
	// .envファイルは存在しなくてもよい（本番では環境変数を直接設定する）
	_ = godotenv.Load()

	port := os.Getenv("PORT")
	if port == "" {
		port = "5000"
	}

	server, err := jobboard.NewServer(port)
	if err != nil {
		log.Fatalf("求人掲示板サーバーの初期化に失敗: %v", err)
	}
	defer func() { _ = server.Close() }()

	log.Printf("求人掲示板サービスを起動します: :%s", port)
	if err := server.Run(); err != nil {
		log.Fatalf("求人掲示板サービスの起動に失敗: %v", err)
	}
}
