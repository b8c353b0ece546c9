package curriculum

// ExamCurriculum is the full domain → section → topic tree for one exam,
// loaded from data/exam-domains/<code>.yaml.
type ExamCurriculum struct {
	ExamCode string   `yaml:"exam_code" json:"exam_code"`
	ExamName string   `yaml:"exam_name" json:"exam_name"`
	Domains  []Domain `yaml:"domains" json:"domains"`
}

// Domain is a weighted area of an exam. Percentage is informational only.
type Domain struct {
	Name       string    `yaml:"name" json:"name"`
	Percentage float64   `yaml:"percentage" json:"percentage"`
	Sections   []Section `yaml:"sections" json:"sections"`
}

// Section groups topics within a domain.
type Section struct {
	Name   string  `yaml:"name" json:"name"`
	Topics []Topic `yaml:"topics" json:"topics"`
}

// Topic is a leaf of the curriculum.
type Topic struct {
	Name   string  `yaml:"name" json:"name"`
	Weight float64 `yaml:"weight,omitempty" json:"weight,omitempty"`
}

// DefaultTopicWeight applies when a topic omits weight.
const DefaultTopicWeight = 1.0

// FlattenedTopic is a single topic with its full domain/section context.
type FlattenedTopic struct {
	ExamCode string  `json:"exam_code"`
	Domain   string  `json:"domain"`
	Section  string  `json:"section"`
	Topic    string  `json:"topic"`
	Weight   float64 `json:"weight"`
}

// Path renders the topic as "domain > section > topic".
func (t FlattenedTopic) Path() string {
	return t.Domain + " > " + t.Section + " > " + t.Topic
}

// Flatten lists every topic depth-first in declaration order: domains, then
// sections within a domain, then topics within a section. Date-based
// selection indexes into this slice, so the order must never change for the
// same curriculum.
func Flatten(c *ExamCurriculum) []FlattenedTopic {
	var topics []FlattenedTopic
	for _, d := range c.Domains {
		for _, s := range d.Sections {
			for _, t := range s.Topics {
				w := t.Weight
				if w == 0 {
					w = DefaultTopicWeight
				}
				topics = append(topics, FlattenedTopic{
					ExamCode: c.ExamCode,
					Domain:   d.Name,
					Section:  s.Name,
					Topic:    t.Name,
					Weight:   w,
				})
			}
		}
	}
	return topics
}
