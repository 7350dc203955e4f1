// sim/config.go
//
// Model parameters. Defaults reproduce the England & Wales configuration;
// any subset can be overridden from a YAML file. Rates are per year and
// times are calendar years unless noted.

package sim

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// TimeParams bound the simulated period.
type TimeParams struct {
	StartYear float64 `yaml:"start_year"` // first simulated instant
	EndYear   float64 `yaml:"end_year"`   // simulation ends before this year
}

// PopulationParams size the arena and the initial population.
type PopulationParams struct {
	MaxIndividuals int `yaml:"max_individuals"` // arena capacity, both regions
	MaxImmigrants  int `yaml:"max_immigrants"`  // slots reserved for non-UK born
	InitialUKBorn  int `yaml:"initial_uk_born"`
	InitialNonUK   int `yaml:"initial_non_uk"`
}

// SchedulerParams tune the event queue. Zero buckets defaults to one bucket
// per possible event, the optimum when all bucket operations cost the same.
type SchedulerParams struct {
	Buckets    int     `yaml:"buckets"`
	CycleWidth float64 `yaml:"cycle_width"` // years represented per bucket cycle
}

// DemographyParams drive births, immigration, lifespans, and emigration.
type DemographyParams struct {
	BirthsPerYear     float64 `yaml:"births_per_year"`
	ImmigrantsPerYear float64 `yaml:"immigrants_per_year"`
	MaleBirthFraction float64 `yaml:"male_birth_fraction"`
	ImmNonUKFraction  float64 `yaml:"imm_non_uk_fraction"` // immigrants who are non-UK born
	ImmSSAFraction    float64 `yaml:"imm_ssa_fraction"`    // non-UK immigrants born in SSA
	SSAHIVPrevalence  float64 `yaml:"ssa_hiv_prevalence"`
	ImmAgeMean        float64 `yaml:"imm_age_mean"`
	ImmAgeDev         float64 `yaml:"imm_age_dev"`
	EmigrationRateUK  float64 `yaml:"emigration_rate_uk"`
	EmigrationRateImm float64 `yaml:"emigration_rate_imm"`

	// Cumulative lifespan distribution: LifeAges[i] is an age, LifeProbs[i]
	// the probability of dying at or before it. Sampled conditional on age
	// already reached. Defaults to the UK 2003-2005 male projection.
	LifeAges  []float64 `yaml:"life_ages"`
	LifeProbs []float64 `yaml:"life_probs"`
}

// VaccinationParams describe the BCG programme.
type VaccinationParams struct {
	Efficacy float64 `yaml:"efficacy"` // protection given vaccination
	Coverage float64 `yaml:"coverage"` // fraction vaccinated at the target age
	Age      float64 `yaml:"age"`      // target age of routine vaccination
	EndYear  float64 `yaml:"end_year"` // year routine vaccination of newborns stops
}

// DiseaseParams drive transmission and progression. Progression risks are
// the fraction of a cohort developing disease within the first five years of
// (re)infection; reactivation is a per-year rate.
type DiseaseParams struct {
	ContactsPerYear      float64 `yaml:"contacts_per_year"`      // effective contacts per pulmonary case
	CloseContactFraction float64 `yaml:"close_contact_fraction"` // drawn from own region of birth
	LatentYears          float64 `yaml:"latent_years"`           // recent infection becomes remote after this

	PrimaryRisk      float64 `yaml:"primary_risk"`      // recent infection, within latency window
	ReactivationRate float64 `yaml:"reactivation_rate"` // remote infection, per year
	ReinfectionRisk  float64 `yaml:"reinfection_risk"`  // reinfection, within latency window
	NonUKRiskFactor  float64 `yaml:"non_uk_risk_factor"`
	HIVRiskFactor    float64 `yaml:"hiv_risk_factor"`

	PulmonaryFraction float64 `yaml:"pulmonary_fraction"`
	SmearPosFraction  float64 `yaml:"smear_pos_fraction"`
	RecoveryRate      float64 `yaml:"recovery_rate"` // active disease to remote, per year
	CaseFatality      float64 `yaml:"case_fatality"`

	MutationRateInfected float64 `yaml:"mutation_rate_infected"` // strains per year, latent
	MutationRateDiseased float64 `yaml:"mutation_rate_diseased"` // strains per year, active

	ReportedFraction float64 `yaml:"reported_fraction"`

	InitInfectedUK  float64 `yaml:"init_infected_uk"`  // initial prevalence, UK-born
	InitInfectedImm float64 `yaml:"init_infected_imm"` // initial prevalence, non-UK born
}

// ReportingParams control periodic output.
type ReportingParams struct {
	Interval float64 `yaml:"interval"` // years between reports
}

// Params is the complete configuration of a run.
type Params struct {
	Time        TimeParams        `yaml:"time"`
	Population  PopulationParams  `yaml:"population"`
	Scheduler   SchedulerParams   `yaml:"scheduler"`
	Demography  DemographyParams  `yaml:"demography"`
	Vaccination VaccinationParams `yaml:"vaccination"`
	Disease     DiseaseParams     `yaml:"disease"`
	Reporting   ReportingParams   `yaml:"reporting"`
}

// UK male cohort lifespan projection, 2003-2005 basis: ages and the
// probability of death at or before each age. Near-linear stretches are
// collapsed, so ages are irregularly spaced.
var (
	ukLifeAges = []float64{
		0, 1, 16, 21, 27, 31, 35, 39, 41, 43, 45, 47,
		48, 50, 51, 52, 53, 54, 55, 56, 57, 58, 59, 60,
		61, 62, 63, 64, 65, 66, 67, 68, 69, 70, 71, 72,
		73, 74, 75, 76, 77, 78, 79, 80, 81, 83, 84, 85,
		86, 88, 89, 90, 91, 92, 93, 94, 95, 96, 97, 98,
		99, 100, 121,
	}
	ukLifeProbs = []float64{
		0, 0.00564, 0.00810, 0.01086, 0.01530, 0.01857, 0.02262, 0.02764,
		0.03066, 0.03413, 0.03829, 0.04314, 0.04596, 0.05246, 0.05619,
		0.06025, 0.06469, 0.06939, 0.07448, 0.08005, 0.08597, 0.09259,
		0.09967, 0.10752, 0.11653, 0.12622, 0.13716, 0.14872, 0.16142,
		0.17486, 0.18937, 0.20518, 0.22214, 0.24052, 0.26015, 0.28180,
		0.30497, 0.32979, 0.35663, 0.38500, 0.41529, 0.44749, 0.48086,
		0.51585, 0.55166, 0.62546, 0.66231, 0.69795, 0.73269, 0.80094,
		0.83261, 0.86191, 0.88735, 0.90970, 0.92918, 0.94588, 0.95917,
		0.97040, 0.97908, 0.98562, 0.99042, 0.99373, 1,
	}
)

// DefaultParams returns the England & Wales baseline configuration at a
// scale suitable for a workstation run.
func DefaultParams() Params {
	return Params{
		Time: TimeParams{StartYear: 1981, EndYear: 2010},
		Population: PopulationParams{
			MaxIndividuals: 2_000_000,
			MaxImmigrants:  400_000,
			InitialUKBorn:  900_000,
			InitialNonUK:   100_000,
		},
		Scheduler: SchedulerParams{CycleWidth: 20},
		Demography: DemographyParams{
			BirthsPerYear:     13_000,
			ImmigrantsPerYear: 9_000,
			MaleBirthFraction: 0.513,
			ImmNonUKFraction:  0.45,
			ImmSSAFraction:    0.20,
			SSAHIVPrevalence:  0.05,
			ImmAgeMean:        26,
			ImmAgeDev:         11,
			EmigrationRateUK:  0.002,
			EmigrationRateImm: 0.010,
			LifeAges:          ukLifeAges,
			LifeProbs:         ukLifeProbs,
		},
		Vaccination: VaccinationParams{
			Efficacy: 0.71,
			Coverage: 0.80,
			Age:      13,
			EndYear:  1993,
		},
		Disease: DiseaseParams{
			ContactsPerYear:      6.0,
			CloseContactFraction: 0.50,
			LatentYears:          5,
			PrimaryRisk:          0.15,
			ReactivationRate:     0.0004,
			ReinfectionRisk:      0.09,
			NonUKRiskFactor:      2.0,
			HIVRiskFactor:        7.0,
			PulmonaryFraction:    0.77,
			SmearPosFraction:     0.45,
			RecoveryRate:         0.5,
			CaseFatality:         0.06,
			MutationRateInfected: 0.001,
			MutationRateDiseased: 0.01,
			ReportedFraction:     0.75,
			InitInfectedUK:       0.01,
			InitInfectedImm:      0.15,
		},
		Reporting: ReportingParams{Interval: 0.5},
	}
}

// LoadParams overlays a YAML parameter file onto the defaults. An empty path
// returns the defaults unchanged.
func LoadParams(path string) (Params, error) {
	p := DefaultParams()
	if path == "" {
		return p, p.Validate()
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return p, fmt.Errorf("read parameter file: %w", err)
	}
	if err := yaml.Unmarshal(data, &p); err != nil {
		return p, fmt.Errorf("parse parameter file %s: %w", path, err)
	}
	return p, p.Validate()
}

// Validate rejects configurations the simulation cannot run with.
func (p *Params) Validate() error {
	if p.Time.EndYear <= p.Time.StartYear {
		return fmt.Errorf("end year %g must follow start year %g", p.Time.EndYear, p.Time.StartYear)
	}
	if p.Population.MaxIndividuals < 2 {
		return fmt.Errorf("max individuals %d too small", p.Population.MaxIndividuals)
	}
	if p.Population.MaxImmigrants < 1 || p.Population.MaxImmigrants >= p.Population.MaxIndividuals {
		return fmt.Errorf("max immigrants %d must be in [1, max individuals)", p.Population.MaxImmigrants)
	}
	if p.Population.InitialNonUK > p.Population.MaxImmigrants {
		return fmt.Errorf("initial non-UK population %d exceeds immigrant arena %d",
			p.Population.InitialNonUK, p.Population.MaxImmigrants)
	}
	if p.Population.InitialUKBorn > p.Population.MaxIndividuals-p.Population.MaxImmigrants {
		return fmt.Errorf("initial UK-born population %d exceeds UK-born arena %d",
			p.Population.InitialUKBorn, p.Population.MaxIndividuals-p.Population.MaxImmigrants)
	}
	if p.Scheduler.Buckets < 0 {
		return fmt.Errorf("bucket count %d must not be negative", p.Scheduler.Buckets)
	}
	if p.Scheduler.CycleWidth <= 0 {
		return fmt.Errorf("cycle width %g must be positive", p.Scheduler.CycleWidth)
	}
	if n := len(p.Demography.LifeAges); n < 2 || n != len(p.Demography.LifeProbs) {
		return fmt.Errorf("life table must pair at least two ages with probabilities")
	}
	if p.Disease.LatentYears <= 0 {
		return fmt.Errorf("latent window %g must be positive", p.Disease.LatentYears)
	}
	if p.Reporting.Interval <= 0 {
		return fmt.Errorf("report interval %g must be positive", p.Reporting.Interval)
	}
	return nil
}
