package repository

import "gorm.io/gorm"

// Repository 所有 Repository 的聚合入口
type Repository struct {
	User       UserRepository
	Credential CredentialRepository
	Snapshot   SnapshotRepository
	Homework   HomeworkRepository
	Exam       ExamRepository
}

// NewRepository 创建 Repository 聚合
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{
		User:       NewUserRepo(db),
		Credential: NewCredentialRepo(db),
		Snapshot:   NewSnapshotRepo(db),
		Homework:   NewHomeworkRepo(db),
		Exam:       NewExamRepo(db),
	}
}

