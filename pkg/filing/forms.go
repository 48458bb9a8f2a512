package filing

import (
	"sort"
	"strings"
)

// AmendsSuffix marks an amended form, e.g. 10-K/A.
const AmendsSuffix = "/A"

// supportedForms are the form types a download may request.
var supportedForms = map[string]struct{}{}

func init() {
	for _, form := range []string{
		"1-A", "1-K", "1-SA", "1-U", "1-Z",
		"10-12B", "10-12G", "10-D", "10-K", "10-KT", "10-Q", "10-QT",
		"11-K", "11-KT",
		"13F-HR", "13F-NT", "144",
		"15-12B", "15-12G", "15-15D",
		"18-K", "20-F", "20FR12B", "20FR12G", "24F-2NT", "25", "25-NSE",
		"3", "4", "5",
		"40-F", "40-17G", "424B1", "424B2", "424B3", "424B4", "424B5", "424B7", "424B8", "425",
		"485APOS", "485BPOS", "497", "497K",
		"6-K", "8-A12B", "8-A12G", "8-K", "8-K12B", "8-K12G3", "8-K15D5",
		"ABS-15G", "ABS-EE", "ARS", "CORRESP", "D",
		"DEF 14A", "DEF 14C", "DEFA14A", "DEFM14A", "DEFR14A", "DFAN14A", "DRS",
		"F-1", "F-3", "F-4", "F-6", "FWP",
		"N-1A", "N-2", "N-CEN", "N-CSR", "N-CSRS", "N-MFP2", "N-PX", "N-Q", "NPORT-P",
		"NT 10-K", "NT 10-Q", "NT 20-F",
		"POS AM", "PRE 14A", "PRE 14C", "PX14A6G",
		"S-1", "S-11", "S-3", "S-3ASR", "S-4", "S-8", "S-8 POS",
		"SC 13D", "SC 13G", "SC 14D9", "SC TO-I", "SC TO-T", "SD",
		"UPLOAD",
	} {
		supportedForms[form] = struct{}{}
	}
}

// IsSupported reports whether form may be requested. An amended form is
// supported when its base form is.
func IsSupported(form string) bool {
	_, ok := supportedForms[BaseForm(form)]
	return ok
}

// IsAmendment reports whether form carries the amendment suffix.
func IsAmendment(form string) bool {
	return strings.HasSuffix(form, AmendsSuffix)
}

// BaseForm strips the amendment suffix.
func BaseForm(form string) string {
	return strings.TrimSuffix(form, AmendsSuffix)
}

// SupportedForms returns the supported form types, sorted.
func SupportedForms() []string {
	forms := make([]string, 0, len(supportedForms))
	for form := range supportedForms {
		forms = append(forms, form)
	}
	sort.Strings(forms)
	return forms
}
