package script

import "fmt"

// Slice selects which part of the source document a segment receives.
type Slice string

const (
	SliceNone       Slice = "none"
	SliceFull       Slice = "full"
	SliceFirstHalf  Slice = "first_half"
	SliceSecondHalf Slice = "second_half"
)

func (s Slice) valid() bool {
	switch s {
	case SliceNone, SliceFull, SliceFirstHalf, SliceSecondHalf:
		return true
	}
	return false
}

// Role picks the instruction template used for a segment.
type Role string

const (
	RoleOpening Role = "opening"
	RoleBody    Role = "body"
	RoleClosing Role = "closing"
)

func (r Role) valid() bool {
	switch r {
	case RoleOpening, RoleBody, RoleClosing:
		return true
	}
	return false
}

// SegmentSpec describes one independently generated chunk of the script.
type SegmentSpec struct {
	Name        string `yaml:"name"`
	Words       int    `yaml:"words"`
	Description string `yaml:"description"`
	Slice       Slice  `yaml:"slice"`
	Role        Role   `yaml:"role"`
}

// Plan is the ordered list of segments. Order is both generation order and
// assembly order.
type Plan []SegmentSpec

// DefaultPlan returns the four-segment episode layout.
func DefaultPlan() Plan {
	return Plan{
		{
			Name:        "Introduction & Setup",
			Words:       200,
			Description: "Introduce the podcast and the hosts, establish the context for the discussion of the paper, and set expectations for the depth of discussion to follow.",
			Slice:       SliceFull,
			Role:        RoleOpening,
		},
		{
			Name:        "Key Concepts Part 1",
			Words:       2500,
			Description: "Explore the paper's introduction, background, and initial concepts through natural conversation. Focus on clear explanations first, using analogies only when they genuinely help clarify complex concepts. End mid-conversation, ready to flow into the next segment.",
			Slice:       SliceFirstHalf,
			Role:        RoleBody,
		},
		{
			Name:        "Key Concepts Part 2",
			Words:       2500,
			Description: "Continue the discussion of the paper's findings and implications, maintaining the natural flow of conversation. Prioritize direct explanations over analogies, using analogies only when they add genuine value to understanding. End mid-conversation, ready to flow into the next segment.",
			Slice:       SliceSecondHalf,
			Role:        RoleBody,
		},
		{
			Name:        "Closing",
			Words:       200,
			Description: "Summarize key points, highlight the most important takeaways, and provide a cohesive wrap-up that encourages reflection and continued curiosity.",
			Slice:       SliceFull,
			Role:        RoleClosing,
		},
	}
}

// Validate checks the plan is usable: at least one segment, unique names,
// positive word targets and known slice/role values.
func (p Plan) Validate() error {
	if len(p) == 0 {
		return fmt.Errorf("plan has no segments")
	}
	seen := make(map[string]bool, len(p))
	for i, seg := range p {
		if seg.Name == "" {
			return fmt.Errorf("segment %d has no name", i)
		}
		if seen[seg.Name] {
			return fmt.Errorf("duplicate segment name %q", seg.Name)
		}
		seen[seg.Name] = true
		if seg.Words <= 0 {
			return fmt.Errorf("segment %q: target word count must be positive (got %d)", seg.Name, seg.Words)
		}
		if !seg.Slice.valid() {
			return fmt.Errorf("segment %q: unknown document slice %q", seg.Name, seg.Slice)
		}
		if !seg.Role.valid() {
			return fmt.Errorf("segment %q: unknown role %q", seg.Name, seg.Role)
		}
	}
	return nil
}

// TotalWords sums the target lengths of every segment.
func (p Plan) TotalWords() int {
	total := 0
	for _, seg := range p {
		total += seg.Words
	}
	return total
}
