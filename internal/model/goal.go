package model

// Subject 学科枚举，取值沿用快照线格式中的原始荷兰语名称
type Subject string

const (
	SubjectGeography       Subject = "Aardrijkskunde"
	SubjectHistory         Subject = "Geschiedenis"
	SubjectScience         Subject = "Natuur & Techniek"
	SubjectCitizenship     Subject = "Burgerschap"
	SubjectTraffic         Subject = "Verkeer"
	SubjectArts            Subject = "Kunst & Cultuur"
	SubjectLanguage        Subject = "Taal"
	SubjectMath            Subject = "Rekenen"
	SubjectSocialEmotional Subject = "Sociaal-Emotioneel"
	SubjectOther           Subject = "Overig"
)

// AllSubjects 固定闭集，校验用
var AllSubjects = []Subject{
	SubjectGeography,
	SubjectHistory,
	SubjectScience,
	SubjectCitizenship,
	SubjectTraffic,
	SubjectArts,
	SubjectLanguage,
	SubjectMath,
	SubjectSocialEmotional,
	SubjectOther,
}

func (s Subject) Valid() bool {
	for _, v := range AllSubjects {
		if s == v {
			return true
		}
	}
	return false
}

// LearningGoal 教师设定的学习目标，反思列表基本只增不删
type LearningGoal struct {
	ID          string            `json:"id"`
	Subject     Subject           `json:"subject"`
	Title       string            `json:"title"`
	Description string            `json:"description"`
	Reflections []ReflectionEntry `json:"reflections"`
}

func (g LearningGoal) Clone() LearningGoal {
	out := g
	out.Reflections = make([]ReflectionEntry, len(g.Reflections))
	copy(out.Reflections, g.Reflections)
	return out
}

// FindReflection 按ID查找，未找到返回nil
func (g *LearningGoal) FindReflection(id string) *ReflectionEntry {
	for i := range g.Reflections {
		if g.Reflections[i].ID == id {
			return &g.Reflections[i]
		}
	}
	return nil
}
