package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"time"
)

// Client は求人掲示板APIのHTTPクライアント。
// Cookieジャーを保持し、セッショントークンを自動で往復させる。
type Client struct {
	// httpClient は内部で使用するHTTPクライアント。
	httpClient *http.Client
	// baseURL は接続先サービスのベースURL。
	baseURL string
}

// New は新しいAPIクライアントを生成する。
// baseURLには接続先サービスのベースURL（例: "http://localhost:5000"）を指定する。
func New(baseURL string) (*Client, error) {
	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, fmt.Errorf("Cookieジャーの作成に失敗: %w", err)
	}
	return &Client{
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
			Jar:     jar,
		},
		baseURL: baseURL,
	}, nil
}

// JobInput は求人の作成・更新リクエストのボディ。
type JobInput struct {
	JobTitle    string  `json:"jobTitle"`
	PhotoURL    string  `json:"photoURL,omitempty"`
	JobCategory string  `json:"jobCategory,omitempty"`
	SalaryFrom  float64 `json:"salaryFrom,omitempty"`
	SalaryTo    float64 `json:"salaryTo,omitempty"`
	Deadline    string  `json:"deadline,omitempty"`
	JobDesc     string  `json:"jobDesc,omitempty"`
	UserEmail   string  `json:"userEmail,omitempty"`
}

// Job はAPIが返す求人のレスポンス。
type Job struct {
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

// ApplicationInput は応募リクエストのボディ。
type ApplicationInput struct {
	JobID          string `json:"jobId"`
	JobTitle       string `json:"jobTitle,omitempty"`
	ApplicantEmail string `json:"applicantEmail"`
	ApplicantName  string `json:"applicantName,omitempty"`
	ResumeLink     string `json:"resumeLink,omitempty"`
	CoverLetter    string `json:"coverLetter,omitempty"`
}

// Application はAPIが返す応募のレスポンス。
type Application struct {
	ID             string `json:"id"`
	JobID          string `json:"jobId"`
	JobTitle       string `json:"jobTitle"`
	ApplicantEmail string `json:"applicantEmail"`
	ApplicantName  string `json:"applicantName"`
	ResumeLink     string `json:"resumeLink"`
	CoverLetter    string `json:"coverLetter"`
	CreatedAt      string `json:"createdAt"`
}

// IssueToken はセッショントークンを発行する。
// トークンはCookieとしてクライアント内部に保持され、以降のリクエストに付与される。
func (c *Client) IssueToken(ctx context.Context, email string) error {
	body := map[string]string{"email": email}
	return c.doJSON(ctx, http.MethodPost, "/jwt", body, nil)
}

// Logout はセッショントークンのCookieを破棄する。
func (c *Client) Logout(ctx context.Context) error {
	return c.doJSON(ctx, http.MethodGet, "/logout", nil, nil)
}

// CreateJob は求人を作成し、生成されたIDを含む求人を返す。
func (c *Client) CreateJob(ctx context.Context, in JobInput) (Job, error) {
	var job Job
	err := c.doJSON(ctx, http.MethodPost, "/jobs", in, &job)
	return job, err
}

// ListJobs はすべての求人を返す。
func (c *Client) ListJobs(ctx context.Context) ([]Job, error) {
	var jobs []Job
	err := c.doJSON(ctx, http.MethodGet, "/jobs", nil, &jobs)
	return jobs, err
}

// MyJobs は指定メールアドレスのユーザーが投稿した求人を返す。認証が必要。
func (c *Client) MyJobs(ctx context.Context, email string) ([]Job, error) {
	var jobs []Job
	err := c.doJSON(ctx, http.MethodGet, "/myJobs/"+email, nil, &jobs)
	return jobs, err
}

// ApplyJob は求人に応募し、生成されたIDを含む応募を返す。
func (c *Client) ApplyJob(ctx context.Context, in ApplicationInput) (Application, error) {
	var app Application
	err := c.doJSON(ctx, http.MethodPost, "/applyJob", in, &app)
	return app, err
}

// AppliedJobs は指定メールアドレスのユーザーの応募を返す。認証が必要。
func (c *Client) AppliedJobs(ctx context.Context, email string) ([]Application, error) {
	var apps []Application
	err := c.doJSON(ctx, http.MethodGet, "/appliedJobs/"+email, nil, &apps)
	return apps, err
}

// GetJob は指定IDの求人を返す。存在しない場合はnilを返す（エラーにならない）。
func (c *Client) GetJob(ctx context.Context, id string) (*Job, error) {
	var job *Job
	if err := c.doJSON(ctx, http.MethodGet, "/job/"+id, nil, &job); err != nil {
		return nil, err
	}
	return job, nil
}

// DeleteJob は指定IDの求人を削除し、削除件数を返す。
func (c *Client) DeleteJob(ctx context.Context, id string) (int64, error) {
	var result struct {
		DeletedCount int64 `json:"deletedCount"`
	}
	err := c.doJSON(ctx, http.MethodDelete, "/job/"+id, nil, &result)
	return result.DeletedCount, err
}

// UpdateJob は指定IDの求人の可変フィールドを差し替え、更新後の求人を返す。
// IDが存在しない場合は新規作成となる（upsert）。
func (c *Client) UpdateJob(ctx context.Context, id string, in JobInput) (Job, error) {
	var job Job
	err := c.doJSON(ctx, http.MethodPut, "/job/"+id, in, &job)
	return job, err
}

// IncrementApplicants は指定IDの求人の応募者数を1増やし、更新件数を返す。
func (c *Client) IncrementApplicants(ctx context.Context, id string) (int64, error) {
	var result struct {
		ModifiedCount int64 `json:"modifiedCount"`
	}
	err := c.doJSON(ctx, http.MethodPatch, "/job/"+id, nil, &result)
	return result.ModifiedCount, err
}

// doJSON はJSON形式のHTTPリクエストを実行する共通処理。
func (c *Client) doJSON(ctx context.Context, method, path string, body any, result any) error {
	var bodyReader io.Reader
	if body != nil {
		jsonBody, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("リクエストボディのシリアライズに失敗: %w", err)
		}
		bodyReader = bytes.NewReader(jsonBody)
	}

	url := c.baseURL + path
	req, err := http.NewRequestWithContext(ctx, method, url, bodyReader)
	if err != nil {
		return fmt.Errorf("HTTPリクエストの作成に失敗: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("HTTPリクエストの送信に失敗: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		respBody, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("HTTPエラー: status=%d, body=%s", resp.StatusCode, string(respBody))
	}

	if result != nil {
		if err := json.NewDecoder(resp.Body).Decode(result); err != nil {
			return fmt.Errorf("レスポンスボディのデシリアライズに失敗: %w", err)
		}
	}
	return nil
}
