package cmd

import (
	"github.com/posener/complete/v2"
	"github.com/posener/complete/v2/predict"
)

// Completion describes the hft command line for shell completion.
func Completion() *complete.Command {
	funds := complete.PredictFunc(predictFunds)
	quarter := predict.Something
	xml := predict.Files("*.xml")

	return &complete.Command{
		Flags: map[string]complete.Predictor{
			"config": predict.Files("*.yaml"),
			"data":   predict.Dirs("*"),
			"roster": predict.Files("*.yaml"),
			"v":      predict.Nothing,
			"plain":  predict.Nothing,
		},
		Sub: map[string]*complete.Command{
			"ingest": {
				Flags: map[string]complete.Predictor{"q": predict.Something},
				Args:  funds,
			},
			"parse": {
				Flags: map[string]complete.Predictor{
					"fund":      funds,
					"quarter":   quarter,
					"filed":     predict.Something,
					"accession": predict.Something,
					"store":     predict.Nothing,
					"offline":   predict.Nothing,
				},
				Args: xml,
			},
			"event": {
				Flags: map[string]complete.Predictor{
					"accession": predict.Something,
					"form":      predict.Set{"SC 13D", "SC 13D/A", "SC 13G", "SC 13G/A", "4", "4/A"},
					"filed":     predict.Something,
					"store":     predict.Nothing,
				},
				Args: xml,
			},
			"holdings": {
				Flags: map[string]complete.Predictor{"q": quarter, "version": predict.Something},
				Args:  funds,
			},
			"diff": {
				Flags: map[string]complete.Predictor{"from": quarter, "to": quarter, "all": predict.Nothing},
				Args:  funds,
			},
			"current": {
				Flags: map[string]complete.Predictor{"q": quarter, "all": predict.Nothing, "holdings": predict.Nothing},
				Args:  funds,
			},
			"events": {
				Flags: map[string]complete.Predictor{"all": predict.Nothing},
				Args:  funds,
			},
			"stock": {
				Flags: map[string]complete.Predictor{"q": quarter},
			},
			"resolve": {
				Flags: map[string]complete.Predictor{"set": predict.Something, "name": predict.Something, "reverse": predict.Nothing},
			},
			"roster": {},
			"topic":  {Args: predict.Set{"config", "roster", "storage", "tickers", "warnings", "*"}},
		},
	}
}

// predictFunds completes the CIKs of the roster.
func predictFunds(prefix string) []string {
	e, err := load()
	if err != nil {
		return nil
	}
	roster, err := e.roster()
	if err != nil {
		return nil
	}
	var ciks []string
	for _, f := range roster.Funds() {
		ciks = append(ciks, f.CIK.String())
	}
	return ciks
}
