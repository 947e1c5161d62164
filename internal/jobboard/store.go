package jobboard

import (
	"context"
	"database/sql"
	"time"
)

// timeLayout は作成日時・更新日時の保存形式。
const timeLayout = "2006-01-02T15:04:05Z"

// nowUTC は現在時刻をUTCの保存形式文字列で返す。
func nowUTC() string {
	return time.Now().UTC().Format(timeLayout)
}

// Job は求人投稿のDBレコードを表す。
type Job struct {
	// ID は求人の一意識別子（UUID）。
	ID string
	// JobTitle は求人タイトル。
	JobTitle string
	// PhotoURL は求人画像のURL。
	PhotoURL string
	// JobCategory は求人カテゴリ。
	JobCategory string
	// SalaryFrom は給与レンジの下限。
	SalaryFrom float64
	// SalaryTo は給与レンジの上限。
	SalaryTo float64
	// Deadline は応募締切日時。クライアントから受け取った文字列をそのまま保持する。
	Deadline string
	// JobDesc は求人の説明。
	JobDesc string
	// UserEmail は投稿者のメールアドレス。
	UserEmail string
	// ApplicantsNumber は応募者数。
	ApplicantsNumber int64
	// CreatedAt は作成日時。
	CreatedAt string
	// UpdatedAt は更新日時。
	UpdatedAt string
}

// JobFields はPUTで差し替え可能な求人の可変フィールド。
// 投稿者メールアドレスと応募者数は差し替え対象に含まれない。
type JobFields struct {
	JobTitle    string
	PhotoURL    string
	JobCategory string
	SalaryFrom  float64
	SalaryTo    float64
	Deadline    string
	JobDesc     string
}

// Application は求人への応募のDBレコードを表す。
// 応募先求人への参照は外部キーで強制されない。求人が削除されても応募は残る。
type Application struct {
	// ID は応募の一意識別子（UUID）。
	ID string
	// JobID は応募先求人のID。
	JobID string
	// JobTitle は応募先求人のタイトル。
	JobTitle string
	// ApplicantEmail は応募者のメールアドレス。
	ApplicantEmail string
	// ApplicantName は応募者の氏名。
	ApplicantName string
	// ResumeLink は履歴書のリンク。
	ResumeLink string
	// CoverLetter はカバーレター。
	CoverLetter string
	// CreatedAt は作成日時。
	CreatedAt string
}

// JobStore は求人投稿の永続化を担う。
type JobStore struct {
	db *sql.DB
}

// NewJobStore は新しいJobStoreを生成する。
func NewJobStore(db *sql.DB) *JobStore {
	return &JobStore{db: db}
}

// jobColumns はjobsテーブルのSELECT対象カラム。
const jobColumns = `id, job_title, photo_url, job_category, salary_from, salary_to,
	deadline, job_desc, user_email, applicants_number, created_at, updated_at`

// scanJob は1行分の求人レコードを読み取る。
func scanJob(row interface{ Scan(dest ...any) error }) (Job, error) {
	var j Job
	err := row.Scan(
		&j.ID, &j.JobTitle, &j.PhotoURL, &j.JobCategory, &j.SalaryFrom, &j.SalaryTo,
		&j.Deadline, &j.JobDesc, &j.UserEmail, &j.ApplicantsNumber, &j.CreatedAt, &j.UpdatedAt,
	)
	return j, err
}

// Create は求人レコードを挿入する。IDと日時は呼び出し元で設定済みであること。
func (s *JobStore) Create(ctx context.Context, job Job) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO jobs (`+jobColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		job.ID, job.JobTitle, job.PhotoURL, job.JobCategory, job.SalaryFrom, job.SalaryTo,
		job.Deadline, job.JobDesc, job.UserEmail, job.ApplicantsNumber, job.CreatedAt, job.UpdatedAt,
	)
	return err
}

// ListAll はすべての求人を返す。フィルタもページングも行わない。
func (s *JobStore) ListAll(ctx context.Context) ([]Job, error) {
	return s.queryJobs(ctx, `SELECT `+jobColumns+` FROM jobs`)
}

// ListByOwner は投稿者メールアドレスが一致する求人を返す。
func (s *JobStore) ListByOwner(ctx context.Context, email string) ([]Job, error) {
	return s.queryJobs(ctx, `SELECT `+jobColumns+` FROM jobs WHERE user_email = ?`, email)
}

// queryJobs は求人の検索クエリを実行する共通処理。
func (s *JobStore) queryJobs(ctx context.Context, query string, args ...any) ([]Job, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	jobs := make([]Job, 0)
	for rows.Next() {
		j, err := scanJob(rows)
		if err != nil {
			return nil, err
		}
		jobs = append(jobs, j)
	}
	return jobs, rows.Err()
}

// GetByID は指定IDの求人を返す。存在しない場合はsql.ErrNoRowsを返す。
// IDは不透明な文字列として扱うため、不正な形式のIDも単に「存在しない」扱いになる。
func (s *JobStore) GetByID(ctx context.Context, id string) (Job, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+jobColumns+` FROM jobs WHERE id = ?`, id)
	return scanJob(row)
}

// DeleteByID は指定IDの求人を削除し、削除された行数を返す。
// 存在しないIDの削除はエラーにならず0を返す。
func (s *JobStore) DeleteByID(ctx context.Context, id string) (int64, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM jobs WHERE id = ?`, id)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// Replace は指定IDの求人の可変フィールドを差し替える。
// IDが存在しない場合は新規レコードとして挿入する（upsert）。
// 既存レコードの投稿者メールアドレスと応募者数は保持される。
func (s *JobStore) Replace(ctx context.Context, id string, fields JobFields) error {
	now := nowUTC()
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO jobs (`+jobColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, '', 0, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			job_title = excluded.job_title,
			photo_url = excluded.photo_url,
			job_category = excluded.job_category,
			salary_from = excluded.salary_from,
			salary_to = excluded.salary_to,
			deadline = excluded.deadline,
			job_desc = excluded.job_desc,
			updated_at = excluded.updated_at`,
		id, fields.JobTitle, fields.PhotoURL, fields.JobCategory, fields.SalaryFrom, fields.SalaryTo,
		fields.Deadline, fields.JobDesc, now, now,
	)
	return err
}

// IncrementApplicants は指定IDの求人の応募者数を1増やし、更新された行数を返す。
// 加算はデータベース側の単一UPDATEで行うため、並行応募でも取りこぼしは発生しない。
func (s *JobStore) IncrementApplicants(ctx context.Context, id string) (int64, error) {
	res, err := s.db.ExecContext(ctx, `
		UPDATE jobs
		SET applicants_number = applicants_number + 1, updated_at = ?
		WHERE id = ?`,
		nowUTC(), id,
	)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// ApplicationStore は求人への応募の永続化を担う。
type ApplicationStore struct {
	db *sql.DB
}

// NewApplicationStore は新しいApplicationStoreを生成する。
func NewApplicationStore(db *sql.DB) *ApplicationStore {
	return &ApplicationStore{db: db}
}

// Create は応募レコードを挿入する。応募先求人の存在は検証しない。
func (s *ApplicationStore) Create(ctx context.Context, app Application) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO applications (id, job_id, job_title, applicant_email, applicant_name, resume_link, cover_letter, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		app.ID, app.JobID, app.JobTitle, app.ApplicantEmail, app.ApplicantName, app.ResumeLink, app.CoverLetter, app.CreatedAt,
	)
	return err
}

// ListByApplicantEmail は応募者メールアドレスが一致する応募をすべて返す。
func (s *ApplicationStore) ListByApplicantEmail(ctx context.Context, email string) ([]Application, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, job_id, job_title, applicant_email, applicant_name, resume_link, cover_letter, created_at
		FROM applications WHERE applicant_email = ?`, email)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	apps := make([]Application, 0)
	for rows.Next() {
		var a Application
		if err := rows.Scan(
			&a.ID, &a.JobID, &a.JobTitle, &a.ApplicantEmail, &a.ApplicantName,
			&a.ResumeLink, &a.CoverLetter, &a.CreatedAt,
		); err != nil {
			return nil, err
		}
		apps = append(apps, a)
	}
	return apps, rows.Err()
}
