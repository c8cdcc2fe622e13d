// Package vcard renders cardholder profiles as vCard 3.0 (RFC 2426).
package vcard

import (
	"sort"
	"strings"
	"unicode/utf8"

	"cardlink/backend/internal/domain/cardholder"
	"cardlink/backend/internal/utils"
)

const (
	ContentType = "text/vcard; charset=utf-8"
	lineLimit   = 75
)

type Options struct {
	// ProfileURL is the public page of the card, added as a second URL.
	ProfileURL string
}

// Build renders p. Lines end in CRLF and are folded at 75 octets.
func Build(p cardholder.Profile, opts Options) string {
	var b builder
	b.line("BEGIN:VCARD")
	b.line("VERSION:3.0")
	b.line("N:" + escape(p.LastName) + ";" + escape(p.FirstName) + ";;;")
	b.line("FN:" + escape(p.Name()))

	if p.Organization != "" || p.Department != "" {
		org := escape(p.Organization)
		if p.Department != "" {
			org += ";" + escape(p.Department)
		}
		b.line("ORG:" + org)
	}
	b.text("TITLE", p.Title)
	b.raw("EMAIL;TYPE=INTERNET,WORK", p.Email)
	b.raw("TEL;TYPE=WORK,VOICE", p.Phone)
	b.raw("TEL;TYPE=CELL", p.Mobile)
	b.raw("URL;TYPE=WORK", p.Website)
	if opts.ProfileURL != "" && opts.ProfileURL != p.Website {
		b.raw("URL", opts.ProfileURL)
	}
	if p.Address != "" {
		b.line("ADR;TYPE=WORK:;;" + escape(p.Address) + ";;;;")
	}
	b.text("NOTE", p.Bio)
	b.raw("PHOTO;VALUE=URI", p.PhotoURL)

	networks := make([]string, 0, len(p.Socials))
	for k := range p.Socials {
		networks = append(networks, k)
	}
	sort.Strings(networks)
	for _, n := range networks {
		b.raw("X-SOCIALPROFILE;TYPE="+strings.ToLower(n), p.Socials[n])
	}

	b.line("END:VCARD")
	return b.String()
}

// FileName is the download name, e.g. "jane-doe.vcf".
func FileName(p cardholder.Profile) string {
	name := utils.Slugify(p.FirstName + " " + p.LastName)
	if name == "" {
		name = p.Slug
	}
	if name == "" {
		name = "contact"
	}
	return name + ".vcf"
}

type builder struct {
	sb strings.Builder
}

func (b *builder) text(prop, v string) {
	if v != "" {
		b.line(prop + ":" + escape(v))
	}
}

// raw writes values that must not be escaped (URIs, emails, numbers).
func (b *builder) raw(prop, v string) {
	v = strings.TrimSpace(stripBreaks(v))
	if v != "" {
		b.line(prop + ":" + v)
	}
}

func (b *builder) line(s string) {
	b.sb.WriteString(fold(s))
	b.sb.WriteString("\r\n")
}

func (b *builder) String() string { return b.sb.String() }

var escaper = strings.NewReplacer(
	`\`, `\\`,
	",", `\,`,
	";", `\;`,
	"\r\n", `\n`,
	"\n", `\n`,
	"\r", `\n`,
)

func escape(s string) string {
	return escaper.Replace(strings.TrimSpace(s))
}

func stripBreaks(s string) string {
	return strings.NewReplacer("\r", "", "\n", "").Replace(s)
}

// fold splits s into 75-octet lines joined by CRLF + space, never inside a
// UTF-8 sequence.
func fold(s string) string {
	if len(s) <= lineLimit {
		return s
	}
	var out strings.Builder
	limit := lineLimit
	for len(s) > limit {
		cut := limit
		for cut > 0 && !utf8.RuneStart(s[cut]) {
			cut--
		}
		out.WriteString(s[:cut])
		out.WriteString("\r\n ")
		s = s[cut:]
		// the leading space counts toward the next line
		limit = lineLimit - 1
	}
	out.WriteString(s)
	return out.String()
}
