// Package seeder generates synthetic datasets for local development and
// demos. Rows carry a ground_truth_label column so scored output can be
// checked against what the generator intended.
package seeder

import (
	"encoding/csv"
	"fmt"
	"io"
	"math/rand"
	"strconv"
	"time"

	"github.com/brianvoe/gofakeit/v6"
)

// Profile names one traffic shape the generator can emit.
type Profile string

const (
	ProfileBenign       Profile = "benign"
	ProfilePortScan     Profile = "port_scan"
	ProfileDDoS         Profile = "ddos"
	ProfileBruteForce   Profile = "brute_force"
	ProfileSQLInjection Profile = "sql_injection"
	ProfileRansomware   Profile = "ransomware"
)

// AllProfiles lists every profile in a stable order.
var AllProfiles = []Profile{
	ProfileBenign,
	ProfilePortScan,
	ProfileDDoS,
	ProfileBruteForce,
	ProfileSQLInjection,
	ProfileRansomware,
}

// datasetHeader matches the column layout the dataset normalizer expects.
var datasetHeader = []string{
	"timestamp",
	"source_ip",
	"dest_ip",
	"port",
	"protocol",
	"duration",
	"packet_count",
	"byte_count",
	"syn_count",
	"distinct_ports",
	"failed_logins",
	"payload_entropy",
	"rate_pps",
	"payload",
	"ground_truth_label",
}

// Options control a generation run.
type Options struct {
	// Count is the total number of rows.
	Count int

	// AttackRatio is the fraction of rows drawn from attack profiles;
	// the rest are benign. Clamped to [0,1].
	AttackRatio float64

	// TimeSpread places row timestamps across this window ending at
	// Start. Zero means all rows share Start.
	TimeSpread time.Duration

	// Start anchors the newest timestamp. Zero means time.Now.
	Start time.Time

	// Seed makes runs reproducible. Zero seeds from the clock.
	Seed int64
}

// Generator emits synthetic dataset rows.
type Generator struct {
	rng   *rand.Rand
	faker *gofakeit.Faker
	opts  Options
}

// New builds a Generator, applying option defaults.
func New(opts Options) *Generator {
	if opts.Count <= 0 {
		opts.Count = 1000
	}
	if opts.AttackRatio < 0 {
		opts.AttackRatio = 0
	}
	if opts.AttackRatio > 1 {
		opts.AttackRatio = 1
	}
	if opts.Start.IsZero() {
		opts.Start = time.Now().UTC()
	}
	seed := opts.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	return &Generator{
		rng:   rand.New(rand.NewSource(seed)),
		faker: gofakeit.New(seed),
		opts:  opts,
	}
}

// WriteDataset emits a CSV dataset to w. Rows are ordered oldest first.
func (g *Generator) WriteDataset(w io.Writer) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(datasetHeader); err != nil {
		return fmt.Errorf("write header: %w", err)
	}

	for i := 0; i < g.opts.Count; i++ {
		row := g.row(i)
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("write row %d: %w", i, err)
		}
	}

	cw.Flush()
	return cw.Error()
}

func (g *Generator) row(index int) []string {
	profile := ProfileBenign
	if g.rng.Float64() < g.opts.AttackRatio {
		attacks := AllProfiles[1:]
		profile = attacks[g.rng.Intn(len(attacks))]
	}

	ts := g.timestampFor(index)
	r := g.featuresFor(profile)

	return []string{
		ts.Format(time.RFC3339),
		r.sourceIP,
		r.destIP,
		strconv.Itoa(r.port),
		r.protocol,
		formatFloat(r.duration),
		formatFloat(r.packetCount),
		formatFloat(r.byteCount),
		formatFloat(r.synCount),
		formatFloat(r.distinctPorts),
		formatFloat(r.failedLogins),
		formatFloat(r.entropy),
		formatFloat(r.ratePPS),
		r.payload,
		string(profile),
	}
}

// timestampFor spaces rows across the window with jitter, matching how
// captured traffic clusters instead of landing on an even grid.
func (g *Generator) timestampFor(index int) time.Time {
	if g.opts.TimeSpread <= 0 {
		return g.opts.Start
	}
	base := float64(g.opts.TimeSpread) / float64(g.opts.Count)
	offset := time.Duration(float64(index)*base + (g.rng.Float64()*2-1)*base*0.4)
	if offset < 0 {
		offset = 0
	}
	if offset > g.opts.TimeSpread {
		offset = g.opts.TimeSpread
	}
	return g.opts.Start.Add(-(g.opts.TimeSpread - offset))
}

type rowFeatures struct {
	sourceIP, destIP, protocol, payload   string
	port                                  int
	duration, packetCount, byteCount      float64
	synCount, distinctPorts, failedLogins float64
	entropy, ratePPS                      float64
}

var sqlPayloads = []string{
	"id=1 UNION SELECT username, password FROM users--",
	"name=' OR 1=1 --",
	"q='; DROP TABLE sessions;--",
	"search=1 AND SLEEP(5)",
	"filter=1 FROM information_schema.tables",
}

func (g *Generator) featuresFor(profile Profile) rowFeatures {
	r := rowFeatures{
		sourceIP: g.faker.IPv4Address(),
		destIP:   g.faker.IPv4Address(),
		protocol: "tcp",
	}

	switch profile {
	case ProfilePortScan:
		r.port = g.rng.Intn(1024)
		r.duration = 1 + g.rng.Float64()*10
		r.packetCount = 50 + float64(g.rng.Intn(200))
		r.byteCount = r.packetCount * 60
		r.synCount = r.packetCount * 0.5
		r.distinctPorts = 20 + float64(g.rng.Intn(80))
		r.entropy = 1 + g.rng.Float64()*2
		r.ratePPS = 10 + g.rng.Float64()*40

	case ProfileDDoS:
		r.port = []int{80, 443}[g.rng.Intn(2)]
		r.duration = 5 + g.rng.Float64()*60
		r.ratePPS = 150 + g.rng.Float64()*2000
		r.packetCount = r.ratePPS * r.duration
		r.byteCount = r.packetCount * 120
		r.synCount = 250 + float64(g.rng.Intn(5000))
		r.distinctPorts = 1
		r.entropy = 2 + g.rng.Float64()*2

	case ProfileBruteForce:
		r.port = 22
		r.protocol = "tcp"
		r.duration = 30 + g.rng.Float64()*300
		r.failedLogins = 8 + float64(g.rng.Intn(40))
		r.packetCount = r.failedLogins * 12
		r.byteCount = r.packetCount * 400
		r.distinctPorts = 1
		r.entropy = 4 + g.rng.Float64()
		r.ratePPS = 1 + g.rng.Float64()*5

	case ProfileSQLInjection:
		r.port = 443
		r.duration = g.rng.Float64() * 2
		r.packetCount = 4 + float64(g.rng.Intn(20))
		r.byteCount = 800 + float64(g.rng.Intn(4000))
		r.entropy = 5 + g.rng.Float64()
		r.ratePPS = 1 + g.rng.Float64()*10
		r.payload = sqlPayloads[g.rng.Intn(len(sqlPayloads))]

	case ProfileRansomware:
		r.port = 445
		r.protocol = "tcp"
		r.duration = 60 + g.rng.Float64()*600
		r.byteCount = float64(2<<20) + g.rng.Float64()*float64(200<<20)
		r.packetCount = r.byteCount / 1400
		r.entropy = 7.6 + g.rng.Float64()*0.4
		r.distinctPorts = 1
		r.ratePPS = 20 + g.rng.Float64()*70

	default: // benign
		r.port = []int{80, 443, 53, 123}[g.rng.Intn(4)]
		if r.port == 53 || r.port == 123 {
			r.protocol = "udp"
		}
		r.duration = g.rng.Float64() * 30
		r.packetCount = 1 + float64(g.rng.Intn(100))
		r.byteCount = r.packetCount * (100 + g.rng.Float64()*900)
		r.synCount = 1
		r.distinctPorts = 1 + float64(g.rng.Intn(3))
		r.entropy = 2 + g.rng.Float64()*3.5
		r.ratePPS = 1 + g.rng.Float64()*20
	}

	return r
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', 3, 64)
}
