// Package roster holds the fixed directory of practitioners that
// appointments can be booked against.
package roster

import (
	"errors"
	"sort"
	"strings"
)

var ErrNotFound = errors.New("practitioner not found")

type Practitioner struct {
	ID             string `json:"id"`
	Name           string `json:"name"`
	Specialization string `json:"specialization"`
	ProfilePic     string `json:"profile_pic,omitempty"`
	Bio            string `json:"bio,omitempty"`
	Phone          string `json:"phone,omitempty"`
	Email          string `json:"email,omitempty"`
	Availability   string `json:"availability,omitempty"`
}

// Directory is a read-only, in-memory practitioner index.
type Directory struct {
	byID  map[string]Practitioner
	order []string
}

func NewDirectory(practitioners []Practitioner) *Directory {
	d := &Directory{byID: make(map[string]Practitioner, len(practitioners))}
	for _, p := range practitioners {
		if _, dup := d.byID[p.ID]; !dup {
			d.order = append(d.order, p.ID)
		}
		d.byID[p.ID] = p
	}
	return d
}

// Default returns the built-in roster.
func Default() *Directory {
	return NewDirectory(defaultPractitioners)
}

func (d *Directory) Has(id string) bool {
	_, ok := d.byID[id]
	return ok
}

func (d *Directory) Find(id string) (Practitioner, error) {
	p, ok := d.byID[id]
	if !ok {
		return Practitioner{}, ErrNotFound
	}
	return p, nil
}

// List returns every practitioner in roster order.
func (d *Directory) List() []Practitioner {
	out := make([]Practitioner, 0, len(d.order))
	for _, id := range d.order {
		out = append(out, d.byID[id])
	}
	return out
}

func (d *Directory) IDs() []string {
	return append([]string(nil), d.order...)
}

// Search matches q case-insensitively against name and specialization.
// Name matches sort ahead of specialization-only matches. An empty q
// returns the whole roster.
func (d *Directory) Search(q string) []Practitioner {
	q = strings.ToLower(strings.TrimSpace(q))
	if q == "" {
		return d.List()
	}
	type hit struct {
		p    Practitioner
		rank int
	}
	var hits []hit
	for _, p := range d.List() {
		switch {
		case strings.Contains(strings.ToLower(p.Name), q):
			hits = append(hits, hit{p, 0})
		case strings.Contains(strings.ToLower(p.Specialization), q):
			hits = append(hits, hit{p, 1})
		}
	}
	sort.SliceStable(hits, func(i, j int) bool { return hits[i].rank < hits[j].rank })
	out := make([]Practitioner, 0, len(hits))
	for _, h := range hits {
		out = append(out, h.p)
	}
	return out
}

var defaultPractitioners = []Practitioner{
	{
		ID:             "doc1",
		Name:           "Dr. Alice Smith",
		Specialization: "Cardiology",
		Bio:            "Dr. Alice has 12+ years of experience in treating cardiovascular diseases.",
		Phone:          "+91 9876543210",
		Email:          "alice.smith@hospital.com",
		Availability:   "Mon - Fri, 9:00 AM - 4:00 PM",
	},
	{
		ID:             "doc2",
		Name:           "Dr. Bob Johnson",
		Specialization: "Neurology",
		Bio:            "Dr. Bob is a highly regarded neurologist with a focus on brain health.",
		Phone:          "+91 8765432109",
		Email:          "bob.johnson@hospital.com",
		Availability:   "Tue - Sat, 10:00 AM - 5:00 PM",
	},
	{
		ID:             "doc3",
		Name:           "Dr. Carol Williams",
		Specialization: "Pediatrics",
		Bio:            "Dr. Carol is known for her compassionate care for children.",
		Phone:          "+91 7654321098",
		Email:          "carol.williams@hospital.com",
		Availability:   "Mon - Fri, 8:00 AM - 2:00 PM",
	},
	{
		ID:             "doc4",
		Name:           "Dr. David Miller",
		Specialization: "Orthopedics",
		Bio:            "Dr. David specializes in joint replacements and sports injuries, with 10 years of experience.",
		Phone:          "+91 9543216780",
		Email:          "david.miller@hospital.com",
		Availability:   "Mon - Fri, 10:00 AM - 6:00 PM",
	},
	{
		ID:             "doc5",
		Name:           "Dr. Emily Davis",
		Specialization: "Dermatology",
		Bio:            "Dr. Emily provides expert care in skin health and cosmetic dermatology.",
		Phone:          "+91 9432175680",
		Email:          "emily.davis@hospital.com",
		Availability:   "Tue - Sat, 9:00 AM - 5:00 PM",
	},
	{
		ID:             "doc6",
		Name:           "Dr. Frank Wilson",
		Specialization: "Gastroenterology",
		Bio:            "With over 15 years of experience, Dr. Frank specializes in digestive disorders and endoscopy.",
		Phone:          "+91 9321478560",
		Email:          "frank.wilson@hospital.com",
		Availability:   "Mon - Fri, 8:30 AM - 3:30 PM",
	},
	{
		ID:             "doc7",
		Name:           "Dr. Grace Lee",
		Specialization: "Psychiatry",
		Bio:            "Dr. Grace is dedicated to mental health care and holistic therapy.",
		Phone:          "+91 9214785630",
		Email:          "grace.lee@hospital.com",
		Availability:   "Tue - Sat, 11:00 AM - 7:00 PM",
	},
	{
		ID:             "doc8",
		Name:           "Dr. Henry Brown",
		Specialization: "OBGYN",
		Bio:            "Dr. Henry specializes in women's health and prenatal care.",
		Phone:          "+91 9105472360",
		Email:          "henry.brown@hospital.com",
		Availability:   "Mon - Fri, 9:00 AM - 4:00 PM",
	},
	{
		ID:             "doc9",
		Name:           "Dr. Irene Thomas",
		Specialization: "Radiology",
		Bio:            "Dr. Irene is an expert in diagnostic imaging and radiological interpretations.",
		Phone:          "+91 9098765432",
		Email:          "irene.thomas@hospital.com",
		Availability:   "Mon, Wed, Fri, 10:00 AM - 5:00 PM",
	},
	{
		ID:             "doc10",
		Name:           "Dr. Jack Miller",
		Specialization: "Urology",
		Bio:            "Dr. Jack specializes in treating urinary tract disorders with a patient-centric approach.",
		Phone:          "+91 9871236540",
		Email:          "jack.miller@hospital.com",
		Availability:   "Tue - Sat, 8:00 AM - 2:00 PM",
	},
}
