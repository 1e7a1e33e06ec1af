package model

// CTAButton is a labelled link rendered as a call-to-action button.
type CTAButton struct {
	Text string `json:"text" yaml:"text"`
	Link string `json:"link" yaml:"link"`
}

// StatItem is a headline figure such as "98%" / "Satisfaction".
type StatItem struct {
	Value string `json:"value" yaml:"value"`
	Label string `json:"label" yaml:"label"`
}

// IconItem is a titled blurb decorated with one of the known icons.
type IconItem struct {
	Title       string `json:"title" yaml:"title"`
	Description string `json:"description" yaml:"description"`
	Icon        string `json:"icon" yaml:"icon"`
}

type ContactInfo struct {
	Phone    string `json:"phone" yaml:"phone"`
	Email    string `json:"email" yaml:"email"`
	Address  string `json:"address" yaml:"address"`
	Location string `json:"location,omitempty" yaml:"location,omitempty"`
}

type NavLink struct {
	Label string `json:"label" yaml:"label"`
	Href  string `json:"href" yaml:"href"`
}

// Hero is the first screen of the landing page.
type Hero struct {
	Title        string     `json:"title" yaml:"title"`
	Subtitle     string     `json:"subtitle" yaml:"subtitle"`
	Badge        string     `json:"badge" yaml:"badge"`
	Benefits     []string   `json:"benefits" yaml:"benefits"`
	CTAPrimary   CTAButton  `json:"cta_primary" yaml:"cta_primary"`
	CTASecondary CTAButton  `json:"cta_secondary" yaml:"cta_secondary"`
	Image        string     `json:"image" yaml:"image"`
	Stats        []StatItem `json:"stats" yaml:"stats"`
}

type About struct {
	SectionTitle   string     `json:"section_title" yaml:"section_title"`
	Title          string     `json:"title" yaml:"title"`
	Description    string     `json:"description" yaml:"description"`
	SubDescription string     `json:"sub_description" yaml:"sub_description"`
	Values         []IconItem `json:"values" yaml:"values"`
	FeaturesTitle  string     `json:"features_title" yaml:"features_title"`
	Features       []string   `json:"features" yaml:"features"`
}

type ServiceItem struct {
	Title       string   `json:"title" yaml:"title"`
	Description string   `json:"description" yaml:"description"`
	Icon        string   `json:"icon" yaml:"icon"`
	Features    []string `json:"features" yaml:"features"`
}

type Services struct {
	SectionTitle string        `json:"section_title" yaml:"section_title"`
	Title        string        `json:"title" yaml:"title"`
	Description  string        `json:"description" yaml:"description"`
	Items        []ServiceItem `json:"items" yaml:"items"`
	Benefits     []IconItem    `json:"benefits" yaml:"benefits"`
}

type ProcessStep struct {
	Number      string `json:"number" yaml:"number"`
	Title       string `json:"title" yaml:"title"`
	Description string `json:"description" yaml:"description"`
	Icon        string `json:"icon" yaml:"icon"`
}

type Process struct {
	SectionTitle string        `json:"section_title" yaml:"section_title"`
	Title        string        `json:"title" yaml:"title"`
	Description  string        `json:"description" yaml:"description"`
	Steps        []ProcessStep `json:"steps" yaml:"steps"`
}

type TestimonialItem struct {
	Name        string `json:"name" yaml:"name"`
	Role        string `json:"role" yaml:"role"`
	Institution string `json:"institution" yaml:"institution"`
	Quote       string `json:"quote" yaml:"quote"`
	Rating      int    `json:"rating" yaml:"rating"`
}

type Testimonials struct {
	SectionTitle string            `json:"section_title" yaml:"section_title"`
	Title        string            `json:"title" yaml:"title"`
	Description  string            `json:"description" yaml:"description"`
	Items        []TestimonialItem `json:"items" yaml:"items"`
	Stats        []StatItem        `json:"stats" yaml:"stats"`
}

// CTA is the closing call-to-action block with contact details.
type CTA struct {
	SectionTitle string      `json:"section_title" yaml:"section_title"`
	Title        string      `json:"title" yaml:"title"`
	Description  string      `json:"description" yaml:"description"`
	CTAPrimary   CTAButton   `json:"cta_primary" yaml:"cta_primary"`
	CTAWhatsapp  CTAButton   `json:"cta_whatsapp" yaml:"cta_whatsapp"`
	ContactInfo  ContactInfo `json:"contact_info" yaml:"contact_info"`
}

type HeaderButtons struct {
	Primary   CTAButton `json:"primary" yaml:"primary"`
	Secondary CTAButton `json:"secondary" yaml:"secondary"`
}

type Header struct {
	LogoText   string        `json:"logo_text" yaml:"logo_text"`
	Title      string        `json:"title" yaml:"title"`
	NavLinks   []NavLink     `json:"nav_links" yaml:"nav_links"`
	CTAButtons HeaderButtons `json:"cta_buttons" yaml:"cta_buttons"`
}

type Footer struct {
	Description  string      `json:"description" yaml:"description"`
	ContactInfo  ContactInfo `json:"contact_info" yaml:"contact_info"`
	QuickLinks   []NavLink   `json:"quick_links" yaml:"quick_links"`
	ServicesList []string    `json:"services_list" yaml:"services_list"`
	WhatsappCTA  CTAButton   `json:"whatsapp_cta" yaml:"whatsapp_cta"`
}

// Content holds every section of the site. Each field is addressed by its
// SectionKey and is always replaced as a whole.
type Content struct {
	Hero         Hero         `json:"hero" yaml:"hero"`
	About        About        `json:"about" yaml:"about"`
	Services     Services     `json:"services" yaml:"services"`
	Process      Process      `json:"process" yaml:"process"`
	Testimonials Testimonials `json:"testimonials" yaml:"testimonials"`
	CTA          CTA          `json:"cta" yaml:"cta"`
	Header       Header       `json:"header" yaml:"header"`
	Footer       Footer       `json:"footer" yaml:"footer"`
}

// Row is one record of the hosted content table.
type Row struct {
	Key  string
	Data []byte
}
