package model

import "slices"

// DefaultIcon replaces icon names outside Icons.
const DefaultIcon = "Star"

// Icons is the closed set of icon names the site templates know how to draw.
var Icons = []string{
	"ArrowRight",
	"MessageCircle",
	"CheckCircle",
	"Shield",
	"Target",
	"Users",
	"Eye",
	"GraduationCap",
	"Mic2",
	"BookOpen",
	"Clock",
	"Award",
	"MessageSquare",
	"Search",
	"CalendarCheck",
	"Presentation",
	"Quote",
	"Star",
	"Phone",
	"Mail",
	"MapPin",
	"Menu",
	"X",
}

func IconOrDefault(name string) string {
	if slices.Contains(Icons, name) {
		return name
	}
	return DefaultIcon
}
