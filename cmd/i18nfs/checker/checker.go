package checker

import (
	"context"
	"errors"
	"sort"

	fsbackend "github.com/lifei6671/i18n-fsbackend"
)

// Reader is the part of the backend the checker needs.
type Reader interface {
	Read(ctx context.Context, lng, ns string) (fsbackend.Resource, error)
}

type Result struct {
	Languages  []string
	Namespaces []string
	// MissingKeys: lang -> "ns:key" present in another language but not in this one
	MissingKeys map[string][]string
	// RedundantKeys: lang -> "ns:key" absent from the reference (first) language
	RedundantKeys map[string][]string
	// ReadErrors: lang -> ns -> err for files that could not be evaluated
	ReadErrors map[string]map[string]error
	AllKeys    []string
}

// HasIssues reports whether any language has missing, redundant or unreadable resources.
func (r *Result) HasIssues() bool {
	for _, arr := range r.MissingKeys {
		if len(arr) > 0 {
			return true
		}
	}
	for _, arr := range r.RedundantKeys {
		if len(arr) > 0 {
			return true
		}
	}
	for _, errs := range r.ReadErrors {
		if len(errs) > 0 {
			return true
		}
	}
	return false
}

// CheckResources performs:
//  1. key alignment check across languages (missing / redundant)
//  2. a read of every resource, collecting files that fail to evaluate
//
// The first language is the reference for redundant keys.
func CheckResources(ctx context.Context, r Reader, langs, namespaces []string, sep string) (*Result, error) {
	if len(langs) == 0 {
		return nil, errors.New("at least one language is required")
	}
	if len(namespaces) == 0 {
		return nil, errors.New("at least one namespace is required")
	}

	langKeys := make(map[string]map[string]struct{}, len(langs))
	allKeysSet := make(map[string]struct{})
	readErrors := make(map[string]map[string]error)

	for _, lang := range langs {
		kset := make(map[string]struct{})
		for _, ns := range namespaces {
			res, err := r.Read(ctx, lang, ns)
			if err != nil {
				var evalErr *fsbackend.ResourceEvaluationError
				if !errors.As(err, &evalErr) {
					return nil, err
				}
				if readErrors[lang] == nil {
					readErrors[lang] = make(map[string]error)
				}
				readErrors[lang][ns] = err
				continue
			}
			for _, k := range res.Keys(sep) {
				full := ns + ":" + k
				kset[full] = struct{}{}
				allKeysSet[full] = struct{}{}
			}
		}
		langKeys[lang] = kset
	}

	allKeys := make([]string, 0, len(allKeysSet))
	for k := range allKeysSet {
		allKeys = append(allKeys, k)
	}
	sort.Strings(allKeys)

	missing := make(map[string][]string)
	redundant := make(map[string][]string)
	reference := langKeys[langs[0]]

	for _, lang := range langs {
		kset := langKeys[lang]
		for _, k := range allKeys {
			if _, ok := kset[k]; !ok {
				missing[lang] = append(missing[lang], k)
			}
		}
		if lang == langs[0] {
			continue
		}
		for _, k := range allKeys {
			_, inLang := kset[k]
			_, inRef := reference[k]
			if inLang && !inRef {
				redundant[lang] = append(redundant[lang], k)
			}
		}
	}

	sortedLangs := append([]string(nil), langs...)
	sort.Strings(sortedLangs)
	sortedNS := append([]string(nil), namespaces...)
	sort.Strings(sortedNS)

	return &Result{
		Languages:     sortedLangs,
		Namespaces:    sortedNS,
		MissingKeys:   missing,
		RedundantKeys: redundant,
		ReadErrors:    readErrors,
		AllKeys:       allKeys,
	}, nil
}
