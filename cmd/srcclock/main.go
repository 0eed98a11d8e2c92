// Command srcclock is the encode/decode front end for the SRC time-signal
// codec: --decode reads an audio stream and reports the recovered civil
// time, --play renders one or more minutes of SRC audio to a file or
// device. Flag parsing and fatal-error reporting follow the same
// flag-package-plus-log.Fatalf idiom the rest of this codebase's ancestry
// uses for its own main command.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/cwsl/srcclock/internal/audioio"
	"github.com/cwsl/srcclock/internal/calendar"
	"github.com/cwsl/srcclock/internal/config"
	"github.com/cwsl/srcclock/internal/decoder"
	"github.com/cwsl/srcclock/internal/encoder"
	"github.com/cwsl/srcclock/internal/live"
	"github.com/cwsl/srcclock/internal/metrics"
	"github.com/cwsl/srcclock/internal/mqttpublish"
)

// Verbosity controls how much diagnostic detail logf emits; set from
// --verbosity (0..6), mirroring the teacher's own DebugMode global.
var Verbosity int

func logf(level int, format string, args ...any) {
	if level <= Verbosity {
		log.Printf(format, args...)
	}
}

func main() {
	decodeMode := flag.Bool("decode", false, "Decode an SRC audio stream and report the recovered time")
	playMode := flag.Bool("play", false, "Render an SRC audio stream for the given civil time")

	thresholdDB := flag.Float64("threshold-db", -35, "Static decision threshold, in dB")
	wdsWindow := flag.Int("wds-window", 50, "Window Decision System noise-floor window length, in symbols")
	snrDB := flag.Float64("snr-db", 16, "Window Decision System SNR margin, in dB")
	timeoutSec := flag.Int("timeout", 300, "Decode timeout in seconds (minimum 2; values below default to 300)")
	rate := flag.Int("rate", 8000, "Sample rate in Hz (8000-48000)")
	channels := flag.Int("channels", 1, "Input/output channel count (1 or 2)")
	file := flag.String("file", "", "Read from / write to this raw headerless f32 little-endian PCM file instead of a device")
	device := flag.String("device", "", "Read from / write to this network device address (host:port)")

	dst := flag.Bool("dst", false, "Force the DST flag when rendering with --play")
	changeTime := flag.Int("change-time", 7, "Days until DST switch, 0..6; 7 means none scheduled")
	leapSecond := flag.Int("leap-second", 0, "Pending leap second: -1, 0 or +1")
	setDate := flag.String("set-date", "", "Civil time to render with --play, as \"HH:MM dd/mm/YYYY\"")
	syncClock := flag.Bool("sync-clock", false, "Report the high-resolution synced timestamp (never calls settimeofday)")
	repeat := flag.Int("repeat", 1, "Number of minutes to decode/play; 0 means run until cancelled")
	verbosity := flag.Int("verbosity", 0, "Log verbosity, 0..6")
	printFrame := flag.Bool("print-frame", false, "Print the 49-character frame text for each attempt")
	isoDate := flag.Bool("iso-date", false, "Report timestamps as ISO 8601 instead of RFC 2822")
	logPath := flag.String("log", "", "Append human-readable results to this log file")
	configPath := flag.String("config", "", "Path to a YAML configuration file (see internal/config)")

	flag.Parse()
	Verbosity = *verbosity

	if *decodeMode == *playMode {
		log.Fatalf("exactly one of --decode or --play must be given")
	}

	var cfg *config.Config
	if *configPath != "" {
		loaded, err := config.Load(*configPath)
		if err != nil {
			log.Fatalf("srcclock: %v", err)
		}
		cfg = loaded
	} else {
		cfg = &config.Config{}
		cfg.Decoder.SampleRate = *rate
		cfg.Decoder.Channels = *channels
		cfg.Decoder.ThresholdDB = *thresholdDB
		cfg.Decoder.WDSWindow = *wdsWindow
		cfg.Decoder.SNRMarginDB = *snrDB
		cfg.Decoder.TimeoutSec = *timeoutSec
		cfg.Encoder.SampleRate = *rate
	}

	applyOverrides(cfg, func(name string) bool {
		overridden := false
		flag.Visit(func(f *flag.Flag) {
			if f.Name == name {
				overridden = true
			}
		})
		return overridden
	}, *thresholdDB, *wdsWindow, *snrDB, *timeoutSec, *rate, *channels)

	if err := cfg.Validate(); err != nil {
		log.Fatalf("srcclock: %v", err)
	}
	if err := config.ValidateChangeTime(*changeTime); err != nil {
		log.Fatalf("srcclock: %v", err)
	}
	if err := config.ValidateLeapSecond(*leapSecond); err != nil {
		log.Fatalf("srcclock: %v", err)
	}

	var logFile *os.File
	if *logPath != "" {
		f, err := os.OpenFile(*logPath, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
		if err != nil {
			log.Fatalf("srcclock: open log %s: %v", *logPath, err)
		}
		defer f.Close()
		logFile = f
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var coll *metrics.Collectors
	if cfg.Metrics.Enabled {
		coll = metrics.New()
		go serveMetrics(cfg.Metrics.Listen, coll)
	}

	var hub *live.Hub
	if cfg.Live.Enabled {
		hub = live.NewHub()
		go serveLive(cfg.Live.Listen, cfg.Live.Path, hub)
	}

	var publisher *mqttpublish.Publisher
	if cfg.MQTT.Enabled {
		p, err := mqttpublish.Connect(cfg.MQTT.Broker, cfg.MQTT.ClientID, cfg.MQTT.Topic)
		if err != nil {
			log.Fatalf("srcclock: mqtt connect: %v", err)
		}
		defer p.Close()
		publisher = p
	}

	var exitErr error
	if *decodeMode {
		exitErr = runDecode(ctx, cfg, *file, *device, *repeat, *printFrame, *isoDate, *syncClock, logFile, coll, hub, publisher)
	} else {
		exitErr = runPlay(ctx, cfg, *file, *device, *setDate, *dst, *changeTime, *leapSecond, *repeat)
	}

	if exitErr != nil {
		log.Printf("srcclock: %v", exitErr)
		os.Exit(1)
	}
}

func applyOverrides(cfg *config.Config, isSet func(string) bool, thresholdDB float64, wdsWindow int, snrDB float64, timeoutSec, rate, channels int) {
	if isSet("threshold-db") {
		cfg.Decoder.ThresholdDB = thresholdDB
	}
	if isSet("wds-window") {
		cfg.Decoder.WDSWindow = wdsWindow
	}
	if isSet("snr-db") {
		cfg.Decoder.SNRMarginDB = snrDB
	}
	if isSet("timeout") {
		if timeoutSec < 2 {
			timeoutSec = 300
		}
		cfg.Decoder.TimeoutSec = timeoutSec
	}
	if isSet("rate") {
		cfg.Decoder.SampleRate = rate
		cfg.Encoder.SampleRate = rate
	}
	if isSet("channels") {
		cfg.Decoder.Channels = channels
	}
}

func serveMetrics(listen string, coll *metrics.Collectors) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", metrics.Handler())
	if err := http.ListenAndServe(listen, mux); err != nil {
		log.Printf("srcclock: metrics server: %v", err)
	}
}

func serveLive(listen, path string, hub *live.Hub) {
	if path == "" {
		path = "/live"
	}
	mux := http.NewServeMux()
	mux.Handle(path, hub)
	if err := http.ListenAndServe(listen, mux); err != nil {
		log.Printf("srcclock: live server: %v", err)
	}
}

func openSource(file, device string) (audioio.Source, error) {
	switch {
	case file != "":
		return audioio.OpenFileSource(file)
	case device != "":
		conn, err := net.Dial("tcp", device)
		if err != nil {
			return nil, fmt.Errorf("dial %s: %w", device, err)
		}
		return audioio.NewNetworkSource(conn)
	default:
		return nil, fmt.Errorf("one of --file or --device is required")
	}
}

func openSink(file, device string) (audioio.Sink, error) {
	switch {
	case file != "":
		return audioio.CreateFileSink(file)
	case device != "":
		conn, err := net.Dial("tcp", device)
		if err != nil {
			return nil, fmt.Errorf("dial %s: %w", device, err)
		}
		return audioio.NewNetworkSink(conn)
	default:
		return nil, fmt.Errorf("one of --file or --device is required")
	}
}

func runDecode(ctx context.Context, cfg *config.Config, file, device string, repeat int, printFrame, isoDate, syncClock bool, logFile *os.File, coll *metrics.Collectors, hub *live.Hub, publisher *mqttpublish.Publisher) error {
	src, err := openSource(file, device)
	if err != nil {
		return err
	}

	adapter := audioio.New(cfg.Decoder.Channels)
	adapter.OpenSource(src)
	defer adapter.Close()

	dec := decoder.New(adapter, decoder.Params{
		SampleRate:  cfg.Decoder.SampleRate,
		Channels:    cfg.Decoder.Channels,
		ThresholdDB: cfg.Decoder.ThresholdDB,
		WDSWindow:   cfg.Decoder.WDSWindow,
		SNRMarginDB: cfg.Decoder.SNRMarginDB,
		Timeout:     cfg.Decoder.Timeout(),
		CenturyBase: cfg.Decoder.CenturyBase,
	})
	defer dec.Close()

	for attempt := 0; repeat == 0 || attempt < repeat; attempt++ {
		select {
		case <-ctx.Done():
			return nil
		default:
		}

		if hub != nil {
			hub.Broadcast(live.Event{Type: "state", State: live.StateCellCapture, Timestamp: time.Now()})
		}
		if coll != nil {
			coll.FrameAttempted()
		}

		outcome := dec.Decode(ctx)

		if coll != nil {
			coll.DecodeOutcome(int(outcome.ErrorCode))
			if outcome.Time.ChangeTime != 7 {
				coll.RecordDSTWarning()
			}
			if outcome.Time.LeapSecond != 0 {
				coll.RecordLeapWarning()
			}
		}
		if hub != nil {
			hub.Broadcast(live.Event{Type: "state", State: live.StateDone, Timestamp: time.Now(), ErrorCode: int(outcome.ErrorCode)})
		}

		report(outcome, printFrame, isoDate, syncClock, logFile)

		if publisher != nil {
			if err := publisher.Publish(outcome.Time, outcome.ErrorCode, outcome.FrameText); err != nil {
				logf(1, "srcclock: mqtt publish: %v", err)
			}
		}
	}
	return nil
}

func report(outcome decoder.Outcome, printFrame, isoDate, syncClock bool, logFile *os.File) {
	var ts string
	if isoDate {
		ts = outcome.Time.ISO8601(0)
	} else {
		ts = outcome.Time.RFC2822(0)
	}

	line := fmt.Sprintf("%s error=%d", ts, outcome.ErrorCode)
	if syncClock {
		line += fmt.Sprintf(" nsec=%d", outcome.Time.Nsec)
	}
	if printFrame {
		line += " frame=" + outcome.FrameText
	}

	fmt.Println(line)
	if logFile != nil {
		fmt.Fprintln(logFile, line)
	}
}

func runPlay(ctx context.Context, cfg *config.Config, file, device, setDate string, dst bool, changeTime, leapSecond, repeat int) error {
	sink, err := openSink(file, device)
	if err != nil {
		return err
	}

	adapter := audioio.New(1)
	adapter.OpenSink(sink)
	defer adapter.Close()

	civil, err := parseSetDate(setDate)
	if err != nil {
		return err
	}
	civil.DST = dst
	civil.ChangeTime = changeTime
	civil.LeapSecond = leapSecond

	enc := encoder.New(time.Now().UnixNano())
	params := encoder.Params{
		SampleRate:  cfg.Encoder.SampleRate,
		PowerDB:     cfg.Encoder.PowerDB,
		NoiseSigma:  cfg.Encoder.NoiseSigma,
		RandomPhase: cfg.Encoder.RandomPhase,
		RandomDelay: true,
		Sync:        true,
	}

	for minute := 0; repeat == 0 || minute < repeat; minute++ {
		select {
		case <-ctx.Done():
			return nil
		default:
		}
		samples := enc.Render(&civil, params)
		if _, err := adapter.Write(samples); err != nil {
			return fmt.Errorf("write samples: %w", err)
		}
	}
	return nil
}

func parseSetDate(setDate string) (calendar.Time, error) {
	now := time.Now()
	if setDate == "" {
		y, m, d := now.Date()
		return calendar.Time{
			Year: y, Month: int(m), Day: d,
			Weekday: calendar.Weekday(y, int(m), d),
			Hour:    now.Hour(), Minute: now.Minute(),
		}, nil
	}

	parts := strings.SplitN(setDate, " ", 2)
	if len(parts) != 2 {
		return calendar.Time{}, fmt.Errorf("--set-date must be \"HH:MM dd/mm/YYYY\"")
	}
	hm := strings.SplitN(parts[0], ":", 2)
	dmy := strings.SplitN(parts[1], "/", 3)
	if len(hm) != 2 || len(dmy) != 3 {
		return calendar.Time{}, fmt.Errorf("--set-date must be \"HH:MM dd/mm/YYYY\"")
	}

	hour, err1 := strconv.Atoi(hm[0])
	minute, err2 := strconv.Atoi(hm[1])
	day, err3 := strconv.Atoi(dmy[0])
	month, err4 := strconv.Atoi(dmy[1])
	year, err5 := strconv.Atoi(dmy[2])
	for _, err := range []error{err1, err2, err3, err4, err5} {
		if err != nil {
			return calendar.Time{}, fmt.Errorf("--set-date: %w", err)
		}
	}

	return calendar.Time{
		Year: year, Month: month, Day: day,
		Weekday: calendar.Weekday(year, month, day),
		Hour:    hour, Minute: minute,
	}, nil
}
