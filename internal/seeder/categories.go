package seeder

// Category is one generic product search used to warm the price store.
// Terms are deliberately broad; the portal's description match does the
// narrowing.
type Category struct {
	Term     string `json:"term"`
	Group    string `json:"group"`
	Priority string `json:"priority"`
}

// Priority tiers, most important first.
const (
	PriorityP0 = "P0"
	PriorityP1 = "P1"
	PriorityP2 = "P2"
)

// categories is the standing pull list for state-agency medical and
// facility supplies.
var categories = []Category{
	{"nitrile gloves", "exam_gloves", PriorityP0},
	{"nitrile exam gloves", "exam_gloves", PriorityP0},
	{"vinyl gloves", "exam_gloves", PriorityP0},
	{"adult briefs", "incontinence", PriorityP0},
	{"incontinence brief", "incontinence", PriorityP0},
	{"underpads", "incontinence", PriorityP0},
	{"N95", "respiratory", PriorityP0},
	{"respirator", "respiratory", PriorityP0},
	{"surgical mask", "respiratory", PriorityP1},
	{"gauze", "wound_care", PriorityP1},
	{"ABD pad", "wound_care", PriorityP1},
	{"bandage", "wound_care", PriorityP1},
	{"sharps container", "sharps", PriorityP1},
	{"hand sanitizer", "hand_hygiene", PriorityP1},
	{"first aid kit", "first_aid", PriorityP1},
	{"tourniquet", "trauma", PriorityP1},
	{"hi-vis vest", "safety", PriorityP1},
	{"hard hat", "safety", PriorityP1},
	{"safety glasses", "safety", PriorityP1},
	{"trash bag", "janitorial", PriorityP1},
	{"disinfectant", "janitorial", PriorityP2},
	{"gown", "clinical", PriorityP2},
	{"thermometer", "clinical", PriorityP2},
	{"pulse oximeter", "clinical", PriorityP2},
	{"catheter", "clinical", PriorityP2},
	{"syringe", "pharmacy", PriorityP2},
	{"compression stocking", "wound_care", PriorityP2},
}

var priorityRank = map[string]int{
	PriorityP0: 0,
	PriorityP1: 1,
	PriorityP2: 2,
}

// CategoriesFor returns the pull list at or above the given priority tier.
// Unknown priorities fall back to the P0 tier.
func CategoriesFor(priority string) []Category {
	rank, ok := priorityRank[priority]
	if !ok {
		rank = 0
	}
	out := make([]Category, 0, len(categories))
	for _, c := range categories {
		if priorityRank[c.Priority] <= rank {
			out = append(out, c)
		}
	}
	return out
}
