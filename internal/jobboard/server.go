package jobboard

import (
	"database/sql"
	"fmt"
	"log"
	"net/http"
	"os"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/nao1215/jobquest/pkg/middleware"
)

// Server は求人掲示板サービスのHTTPサーバー。
type Server struct {
	// router はGinのHTTPルーター。
	router *gin.Engine
	// port はサーバーのリッスンポート。
	port string
	// jobs は求人投稿のストア。
	jobs *JobStore
	// applications は応募のストア。
	applications *ApplicationStore
	// db はSQLiteデータベース接続。プロセス起動時に一度だけ確立し、全リクエストで共有する。
	db *sql.DB
	// tokenSecret はJWT署名用の秘密鍵。
	tokenSecret string
	// production は本番モードかどうか。Cookieのsecure/SameSite属性を切り替える。
	production bool
}

// NewServer は新しい求人掲示板サーバーを生成する。
// SQLiteデータベースの初期化とマイグレーション適用、接続確認を行う。
func NewServer(port string) (*Server, error) {
	dbPath := getEnvOr("JOBQUEST_DB", "jobquest.db")
	sqlDB, err := sql.Open("sqlite", dbPath+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("データベース接続に失敗: %w", err)
	}

	if err := initSchema(sqlDB); err != nil {
		return nil, fmt.Errorf("スキーマ初期化に失敗: %w", err)
	}

	// 接続確認。成功した場合のみ起動ログを出す。
	if err := sqlDB.Ping(); err != nil {
		return nil, fmt.Errorf("データベースへのpingに失敗: %w", err)
	}
	log.Printf("データベース接続を確認しました: %s", dbPath)

	tokenSecret := getEnvOr("ACCESS_TOKEN_SECRET", "dev-secret-key")
	frontendURL := getEnvOr("FRONTEND_URL", "http://localhost:5173")
	production := os.Getenv("APP_ENV") == "production"

	router := gin.New()
	router.Use(middleware.Recovery())
	router.Use(gin.Logger())
	router.Use(middleware.CORS([]string{frontendURL}))

	s := &Server{
		router:       router,
		port:         port,
		jobs:         NewJobStore(sqlDB),
		applications: NewApplicationStore(sqlDB),
		db:           sqlDB,
		tokenSecret:  tokenSecret,
		production:   production,
	}
	s.setupRoutes()

	return s, nil
}

// Run はHTTPサーバーを起動する。
func (s *Server) Run() error {
	return s.router.Run(fmt.Sprintf(":%s", s.port))
}

// Close はデータベース接続を閉じる。プロセス終了時に呼び出す。
func (s *Server) Close() error {
	return s.db.Close()
}

// setupRoutes はAPIルーティングを設定する。
func (s *Server) setupRoutes() {
	// 認証関連
	s.router.POST("/jwt", s.handleIssueToken())
	s.router.GET("/logout", s.handleLogout())

	// 求人と応募（認証不要）
	s.router.POST("/jobs", s.handleCreateJob())
	s.router.GET("/jobs", s.handleListJobs())
	s.router.POST("/applyJob", s.handleApplyJob())
	s.router.GET("/job/:id", s.handleGetJob())
	s.router.DELETE("/job/:id", s.handleDeleteJob())
	s.router.PUT("/job/:id", s.handleReplaceJob())
	s.router.PATCH("/job/:id", s.handleIncrementApplicants())

	// 本人のデータを返すエンドポイント（認証必須）
	authed := s.router.Group("/")
	authed.Use(middleware.CookieAuth(s.tokenSecret))
	{
		authed.GET("/appliedJobs/:email", s.handleAppliedJobs())
		authed.GET("/myJobs/:email", s.handleMyJobs())
	}

	// 死活確認
	s.router.GET("/", func(c *gin.Context) {
		c.String(http.StatusOK, "Job Quest server is running")
	})
}

// issueTokenRequest はトークン発行リクエストのJSON構造。
type issueTokenRequest struct {
	// Email はトークンに埋め込むメールアドレス。
	Email string `json:"email" binding:"required,email"`
}

// createJobRequest は求人作成リクエストのJSON構造。
type createJobRequest struct {
	// JobTitle は求人タイトル。
	JobTitle string `json:"jobTitle" binding:"required"`
	// PhotoURL は求人画像のURL。
	PhotoURL string `json:"photoURL"`
	// JobCategory は求人カテゴリ。
	JobCategory string `json:"jobCategory"`
	// SalaryFrom は給与レンジの下限。
	SalaryFrom float64 `json:"salaryFrom"`
	// SalaryTo は給与レンジの上限。
	SalaryTo float64 `json:"salaryTo"`
	// Deadline は応募締切日時。
	Deadline string `json:"deadline"`
	// JobDesc は求人の説明。
	JobDesc string `json:"jobDesc"`
	// UserEmail は投稿者のメールアドレス。
	UserEmail string `json:"userEmail" binding:"required,email"`
}

// updateJobRequest は求人更新（PUT）リクエストのJSON構造。
// 投稿者メールアドレスと応募者数は差し替え対象外のため含まない。
type updateJobRequest struct {
	JobTitle    string  `json:"jobTitle" binding:"required"`
	PhotoURL    string  `json:"photoURL"`
	JobCategory string  `json:"jobCategory"`
	SalaryFrom  float64 `json:"salaryFrom"`
	SalaryTo    float64 `json:"salaryTo"`
	Deadline    string  `json:"deadline"`
	JobDesc     string  `json:"jobDesc"`
}

// applyJobRequest は応募リクエストのJSON構造。
type applyJobRequest struct {
	// JobID は応募先求人のID。求人の存在は検証しない。
	JobID string `json:"jobId" binding:"required"`
	// JobTitle は応募先求人のタイトル。
	JobTitle string `json:"jobTitle"`
	// ApplicantEmail は応募者のメールアドレス。
	ApplicantEmail string `json:"applicantEmail" binding:"required,email"`
	// ApplicantName は応募者の氏名。
	ApplicantName string `json:"applicantName"`
	// ResumeLink は履歴書のリンク。
	ResumeLink string `json:"resumeLink"`
	// CoverLetter はカバーレター。
	CoverLetter string `json:"coverLetter"`
}

// jobResponse は求人のJSONレスポンス構造。
type jobResponse struct {
	ID               string  `json:"id"`
	JobTitle         string  `json:"jobTitle"`
	PhotoURL         string  `json:"photoURL"`
	JobCategory      string  `json:"jobCategory"`
	SalaryFrom       float64 `json:"salaryFrom"`
	SalaryTo         float64 `json:"salaryTo"`
	Deadline         string  `json:"deadline"`
	JobDesc          string  `json:"jobDesc"`
	UserEmail        string  `json:"userEmail"`
	ApplicantsNumber int64   `json:"applicantsNumber"`
	CreatedAt        string  `json:"createdAt"`
	UpdatedAt        string  `json:"updatedAt"`
}

// applicationResponse は応募のJSONレスポンス構造。
type applicationResponse struct {
	ID             string `json:"id"`
	JobID          string `json:"jobId"`
	JobTitle       string `json:"jobTitle"`
	ApplicantEmail string `json:"applicantEmail"`
	ApplicantName  string `json:"applicantName"`
	ResumeLink     string `json:"resumeLink"`
	CoverLetter    string `json:"coverLetter"`
	CreatedAt      string `json:"createdAt"`
}

// toJobResponse はDB行をJSONレスポンスに変換する。
func toJobResponse(j Job) jobResponse {
	return jobResponse{
		ID:               j.ID,
		JobTitle:         j.JobTitle,
		PhotoURL:         j.PhotoURL,
		JobCategory:      j.JobCategory,
		SalaryFrom:       j.SalaryFrom,
		SalaryTo:         j.SalaryTo,
		Deadline:         j.Deadline,
		JobDesc:          j.JobDesc,
		UserEmail:        j.UserEmail,
		ApplicantsNumber: j.ApplicantsNumber,
		CreatedAt:        j.CreatedAt,
		UpdatedAt:        j.UpdatedAt,
	}
}

// toApplicationResponse はDB行をJSONレスポンスに変換する。
func toApplicationResponse(a Application) applicationResponse {
	return applicationResponse{
		ID:             a.ID,
		JobID:          a.JobID,
		JobTitle:       a.JobTitle,
		ApplicantEmail: a.ApplicantEmail,
		ApplicantName:  a.ApplicantName,
		ResumeLink:     a.ResumeLink,
		CoverLetter:    a.CoverLetter,
		CreatedAt:      a.CreatedAt,
	}
}

// handleIssueToken はセッショントークンを発行するハンドラを返す。
// 発行したトークンをHTTP-only Cookieとしてクライアントに設定する。
// 本番モードではSecure属性とSameSite=Noneを付与し、クロスサイトでのCookie送信を許可する。
func (s *Server) handleIssueToken() gin.HandlerFunc {
	return func(c *gin.Context) {
		var req issueTokenRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("リクエストが不正です: %v", err)})
			return
		}

		token, err := middleware.GenerateToken(s.tokenSecret, req.Email)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "トークンの発行に失敗しました"})
			log.Printf("トークン発行エラー: %v", err)
			return
		}

		s.setSameSite(c)
		c.SetCookie(middleware.CookieName, token, 3600, "/", "", s.production, true)
		c.JSON(http.StatusOK, gin.H{"success": true})
	}
}

// handleLogout はセッショントークンのCookieを破棄するハンドラを返す。
func (s *Server) handleLogout() gin.HandlerFunc {
	return func(c *gin.Context) {
		s.setSameSite(c)
		// MaxAge -1 でワイヤー上は max-age=0 となり、Cookieが即時削除される
		c.SetCookie(middleware.CookieName, "", -1, "/", "", s.production, true)
		c.JSON(http.StatusOK, gin.H{"success": true})
	}
}

// setSameSite はCookieのSameSite属性をモードに応じて設定する。
// 本番: SameSite=None（クロスサイト許可）、それ以外: SameSite=Strict。
func (s *Server) setSameSite(c *gin.Context) {
	if s.production {
		c.SetSameSite(http.SameSiteNoneMode)
	} else {
		c.SetSameSite(http.SameSiteStrictMode)
	}
}

// handleCreateJob は求人作成を処理するハンドラを返す。
func (s *Server) handleCreateJob() gin.HandlerFunc {
	return func(c *gin.Context) {
		var req createJobRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("リクエストが不正です: %v", err)})
			return
		}

		now := nowUTC()
		job := Job{
			ID:               uuid.New().String(),
			JobTitle:         req.JobTitle,
			PhotoURL:         req.PhotoURL,
			JobCategory:      req.JobCategory,
			SalaryFrom:       req.SalaryFrom,
			SalaryTo:         req.SalaryTo,
			Deadline:         req.Deadline,
			JobDesc:          req.JobDesc,
			UserEmail:        req.UserEmail,
			ApplicantsNumber: 0,
			CreatedAt:        now,
			UpdatedAt:        now,
		}

		if err := s.jobs.Create(c.Request.Context(), job); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "求人の作成に失敗しました"})
			log.Printf("求人作成エラー: %v", err)
			return
		}

		c.JSON(http.StatusCreated, toJobResponse(job))
	}
}

// handleListJobs は全求人の一覧取得を処理するハンドラを返す。
func (s *Server) handleListJobs() gin.HandlerFunc {
	return func(c *gin.Context) {
		jobs, err := s.jobs.ListAll(c.Request.Context())
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "求人一覧の取得に失敗しました"})
			log.Printf("求人一覧取得エラー: %v", err)
			return
		}

		responses := make([]jobResponse, 0, len(jobs))
		for _, j := range jobs {
			responses = append(responses, toJobResponse(j))
		}

		c.JSON(http.StatusOK, responses)
	}
}

// handleApplyJob は求人への応募を処理するハンドラを返す。
// 応募先求人の存在は検証しない。応募者数の加算はPATCH /job/:id で別途行う。
func (s *Server) handleApplyJob() gin.HandlerFunc {
	return func(c *gin.Context) {
		var req applyJobRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("リクエストが不正です: %v", err)})
			return
		}

		app := Application{
			ID:             uuid.New().String(),
			JobID:          req.JobID,
			JobTitle:       req.JobTitle,
			ApplicantEmail: req.ApplicantEmail,
			ApplicantName:  req.ApplicantName,
			ResumeLink:     req.ResumeLink,
			CoverLetter:    req.CoverLetter,
			CreatedAt:      nowUTC(),
		}

		if err := s.applications.Create(c.Request.Context(), app); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "応募の作成に失敗しました"})
			log.Printf("応募作成エラー: %v", err)
			return
		}

		c.JSON(http.StatusCreated, toApplicationResponse(app))
	}
}

// handleAppliedJobs は認証済みユーザー本人の応募一覧を返すハンドラを返す。
// パスパラメータのメールアドレスとトークンのメールアドレスが異なる場合は403を返す。
func (s *Server) handleAppliedJobs() gin.HandlerFunc {
	return func(c *gin.Context) {
		email := c.Param("email")
		if middleware.GetEmail(c) != email {
			c.JSON(http.StatusForbidden, gin.H{"error": "このデータへのアクセス権がありません"})
			return
		}

		apps, err := s.applications.ListByApplicantEmail(c.Request.Context(), email)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "応募一覧の取得に失敗しました"})
			log.Printf("応募一覧取得エラー: %v", err)
			return
		}

		responses := make([]applicationResponse, 0, len(apps))
		for _, a := range apps {
			responses = append(responses, toApplicationResponse(a))
		}

		c.JSON(http.StatusOK, responses)
	}
}

// handleMyJobs は認証済みユーザー本人が投稿した求人一覧を返すハンドラを返す。
// パスパラメータのメールアドレスとトークンのメールアドレスが異なる場合は403を返す。
func (s *Server) handleMyJobs() gin.HandlerFunc {
	return func(c *gin.Context) {
		email := c.Param("email")
		if middleware.GetEmail(c) != email {
			c.JSON(http.StatusForbidden, gin.H{"error": "このデータへのアクセス権がありません"})
			return
		}

		jobs, err := s.jobs.ListByOwner(c.Request.Context(), email)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "求人一覧の取得に失敗しました"})
			log.Printf("求人一覧取得エラー: %v", err)
			return
		}

		responses := make([]jobResponse, 0, len(jobs))
		for _, j := range jobs {
			responses = append(responses, toJobResponse(j))
		}

		c.JSON(http.StatusOK, responses)
	}
}

// handleGetJob は求人の単体取得を処理するハンドラを返す。
// 存在しないIDの場合はエラーではなくnullを返す。
func (s *Server) handleGetJob() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.Param("id")
		job, err := s.jobs.GetByID(c.Request.Context(), id)
		if err == sql.ErrNoRows {
			c.JSON(http.StatusOK, nil)
			return
		}
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "求人の取得に失敗しました"})
			log.Printf("求人取得エラー: %v", err)
			return
		}

		c.JSON(http.StatusOK, toJobResponse(job))
	}
}

// handleDeleteJob は求人の削除を処理するハンドラを返す。
// 存在しないIDの削除はエラーにならず、削除件数0を返す。
func (s *Server) handleDeleteJob() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.Param("id")
		deleted, err := s.jobs.DeleteByID(c.Request.Context(), id)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "求人の削除に失敗しました"})
			log.Printf("求人削除エラー: %v", err)
			return
		}

		c.JSON(http.StatusOK, gin.H{"deletedCount": deleted})
	}
}

// handleReplaceJob は求人の可変フィールドの差し替えを処理するハンドラを返す。
// IDが存在しない場合は新規作成となる（upsert）。更新後の求人を返す。
func (s *Server) handleReplaceJob() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.Param("id")

		var req updateJobRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("リクエストが不正です: %v", err)})
			return
		}

		fields := JobFields{
			JobTitle:    req.JobTitle,
			PhotoURL:    req.PhotoURL,
			JobCategory: req.JobCategory,
			SalaryFrom:  req.SalaryFrom,
			SalaryTo:    req.SalaryTo,
			Deadline:    req.Deadline,
			JobDesc:     req.JobDesc,
		}
		if err := s.jobs.Replace(c.Request.Context(), id, fields); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "求人の更新に失敗しました"})
			log.Printf("求人更新エラー: %v", err)
			return
		}

		// 更新後の求人をDBから取得してレスポンスを返す
		updated, err := s.jobs.GetByID(c.Request.Context(), id)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "更新後の求人の取得に失敗しました"})
			log.Printf("求人取得エラー: %v", err)
			return
		}

		c.JSON(http.StatusOK, toJobResponse(updated))
	}
}

// handleIncrementApplicants は求人の応募者数を1増やすハンドラを返す。
// 存在しないIDの場合は更新件数0を返す。上限は設けない。
func (s *Server) handleIncrementApplicants() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.Param("id")
		modified, err := s.jobs.IncrementApplicants(c.Request.Context(), id)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "応募者数の更新に失敗しました"})
			log.Printf("応募者数更新エラー: %v", err)
			return
		}

		c.JSON(http.StatusOK, gin.H{"modifiedCount": modified})
	}
}

// getEnvOr は環境変数を取得し、設定されていない場合はデフォルト値を返す。
func getEnvOr(key, defaultValue string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultValue
}
