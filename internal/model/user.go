package model

// User 班级里的学生，只有ID和姓名，没有逐字段时间戳
// 因此合并时同ID记录只能整条以远端为准
type User struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}
