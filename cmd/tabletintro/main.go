package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"github.com/ivlev/tabletintro/internal/analyzer"
	"github.com/ivlev/tabletintro/internal/config"
	"github.com/ivlev/tabletintro/internal/director"
	"github.com/ivlev/tabletintro/internal/effects"
	"github.com/ivlev/tabletintro/internal/engine"
	"github.com/ivlev/tabletintro/internal/source"
	"github.com/ivlev/tabletintro/internal/system"
	"github.com/ivlev/tabletintro/internal/video"
)

// version is set with -ldflags "-X main.version=..."
var version = "dev"

func main() {
	// Создаем нужные директории, если их нет
	dirs := []string{"input/profiles", "input/assets", "output"}
	for _, d := range dirs {
		os.MkdirAll(d, 0755)
	}

	profilePtr := flag.String("profile", "", "YAML с профилями устройств (по умолчанию: самый свежий файл в input/profiles/, иначе встроенные)")
	writeProfilesPtr := flag.String("write-profiles", "", "Записать встроенные профили в YAML и выйти")
	outputPtr := flag.String("output", "", "Путь к видео (если пусто, генерируется автоматически в output/)")
	framesPtr := flag.String("frames", "", "Папка для PNG-кадров (без ffmpeg)")
	tracePtr := flag.String("trace", "", "Сохранить таймлайн в YAML (\"auto\" - в output/)")
	widthPtr := flag.Int("width", 1280, "Ширина вьюпорта (CSS px)")
	heightPtr := flag.Int("height", 720, "Высота вьюпорта (CSS px)")
	dprPtr := flag.Float64("dpr", 1, "devicePixelRatio (рендер ограничен 2x)")
	presetPtr := flag.String("preset", "", "Пресет вьюпорта: desktop, tablet, phone")
	mobilePtr := flag.Bool("mobile", false, "Принудительно мобильный профиль")
	fpsPtr := flag.Int("fps", 60, "FPS")
	workersPtr := flag.Int("workers", runtime.NumCPU(), "Потоки рендеринга")
	qualityPtr := flag.Int("quality", 0, "Качество видео (0 - авто, x264: CRF 1-51, VideoToolbox: битрейт = Q*100кбит/с)")
	assetsPtr := flag.String("assets", "", "Ассеты для экрана через запятую: файлы, папки, PDF или URL (по умолчанию: input/assets/)")
	contactPtr := flag.String("contact", effects.DefaultContactURL, "URL для QR-кода, если ассетов нет")
	resizeAtPtr := flag.Float64("resize-at", 0, "Секунда, на которой вьюпорт меняет размер (0 - нет)")
	resizePtr := flag.String("resize", "", "Новый размер вьюпорта WxH для -resize-at")
	statsPtr := flag.Bool("stats", false, "Отчет о производительности")
	alignPtr := flag.Bool("check-alignment", true, "Проверить совпадение оверлея и экрана планшета")
	detectorPtr := flag.String("detector", "tablet", "Детектор для проверки: "+strings.Join(analyzer.Detectors(), ", "))
	verbosePtr := flag.Bool("v", false, "Подробный лог")

	flag.Parse()

	level := slog.LevelWarn
	if *verbosePtr {
		level = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))

	if *writeProfilesPtr != "" {
		ps := config.DefaultProfiles()
		if err := config.WriteProfiles(&ps, *writeProfilesPtr); err != nil {
			log.Fatalf("[-] Ошибка записи профилей: %v", err)
		}
		fmt.Printf("[+++] Профили сохранены: %s\n", *writeProfilesPtr)
		return
	}

	width, height := *widthPtr, *heightPtr
	switch *presetPtr {
	case "desktop":
		width, height = 1280, 720
	case "tablet":
		width, height = 820, 1180
	case "phone":
		width, height = 390, 844
	}

	profiles := loadProfiles(*profilePtr)
	profile := profiles.Select(width)
	if *mobilePtr {
		profile = profiles.Mobile
	}

	cfg := &config.Config{
		ProfilePath:    *profilePtr,
		OutputVideo:    *outputPtr,
		FramesDir:      *framesPtr,
		TracePath:      *tracePtr,
		Width:          width,
		Height:         height,
		PixelRatio:     *dprPtr,
		FPS:            *fpsPtr,
		Workers:        *workersPtr,
		ForceMobile:    *mobilePtr,
		Quality:        *qualityPtr,
		ShowStats:      *statsPtr,
		CheckAlignment: *alignPtr,
		ContactURL:     *contactPtr,
		ResizeAt:       *resizeAtPtr,
		BuildVersion:   version,
	}
	if *resizePtr != "" {
		if _, err := fmt.Sscanf(*resizePtr, "%dx%d", &cfg.ResizeWidth, &cfg.ResizeHeight); err != nil {
			log.Fatalf("[-] Неверный -resize %q, нужно WxH: %v", *resizePtr, err)
		}
	}
	cfg.Assets = splitList(*assetsPtr)
	if len(cfg.Assets) == 0 {
		cfg.Assets = []string{"input/assets"}
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if cfg.TracePath != "" {
		writeTrace(cfg, profile)
	}

	// Ассеты для экрана
	var loaders []source.Loader
	for _, a := range cfg.Assets {
		ls, err := source.ImageAssets(a)
		if err != nil {
			fmt.Printf("[!] Ассет пропущен: %v\n", err)
			continue
		}
		loaders = append(loaders, ls...)
	}
	gate := source.NewGate(nil, loaders...)
	var keys []string
	for _, l := range loaders {
		keys = append(keys, l.Name())
	}

	out, err := openOutput(ctx, cfg, profile)
	if err != nil {
		log.Fatalf("[-] Ошибка вывода: %v", err)
	}

	// Контент экрана строится после загрузки ассетов
	content := &lazyContent{gate: gate, keys: keys, contact: cfg.ContactURL}
	preview := engine.NewPreview(cfg, profile, content, content, out)
	if preview.Detector, err = analyzer.NewDetector(*detectorPtr); err != nil {
		log.Fatalf("[-] %v", err)
	}

	res, err := preview.Run(ctx)
	closeErr := out.Close()
	if err != nil {
		log.Fatalf("[-] Ошибка превью: %v", err)
	}
	if closeErr != nil {
		log.Fatalf("[-] Ошибка кодирования: %v", closeErr)
	}

	if res.Alignment != nil {
		if res.Alignment.Aligned(2) {
			fmt.Printf("[*] Оверлей совпадает с экраном: %s\n", res.Alignment)
		} else {
			fmt.Printf("[!] Оверлей смещен: %s\n", res.Alignment)
		}
	}
	if cfg.OutputVideo != "" {
		fmt.Printf("[+++] Успех! Результат: %s\n", cfg.OutputVideo)
	}
	if cfg.FramesDir != "" {
		fmt.Printf("[+++] Кадры: %s (%d)\n", cfg.FramesDir, res.Frames)
	}
}

func loadProfiles(path string) config.Profiles {
	if path == "" {
		latest, err := system.FindLatestProfile("input/profiles")
		if err != nil {
			return config.DefaultProfiles()
		}
		path = latest
		fmt.Printf("[*] Выбран профиль: %s\n", path)
	}
	ps, err := config.ReadProfiles(path)
	if err != nil {
		log.Fatalf("[-] Ошибка чтения профилей: %v", err)
	}
	return *ps
}

func writeTrace(cfg *config.Config, profile config.DeviceProfile) {
	path := cfg.TracePath
	if path == "auto" {
		path = director.GenerateTracePath("output", profile.Name)
	}
	tr, err := director.Sample(profile, cfg.FPS, float32(cfg.Width)/float32(cfg.Height))
	if err != nil {
		log.Fatalf("[-] Ошибка таймлайна: %v", err)
	}
	os.MkdirAll(filepath.Dir(path), 0755)
	if err := director.WriteTrace(tr, path); err != nil {
		log.Fatalf("[-] Ошибка записи таймлайна: %v", err)
	}
	fmt.Printf("[*] Таймлайн сохранен: %s\n", path)
}

// openOutput picks the ffmpeg stream, the PNG sequence or both.
func openOutput(ctx context.Context, cfg *config.Config, profile config.DeviceProfile) (video.FrameWriter, error) {
	var writers video.Tee

	if cfg.FramesDir != "" {
		seq, err := video.NewPNGSequence(cfg.FramesDir, "frame")
		if err != nil {
			return nil, err
		}
		writers = append(writers, seq)
	}

	if cfg.OutputVideo == "" && cfg.FramesDir == "" {
		timestamp := time.Now().Format("2006-01-02_15-04-05")
		if !system.HasFFmpeg() {
			cfg.FramesDir = filepath.Join("output", fmt.Sprintf("frames_%s_%s", profile.Name, timestamp))
			fmt.Printf("[!] ffmpeg не найден, кадры будут сохранены в %s\n", cfg.FramesDir)
			return openOutput(ctx, cfg, profile)
		}
		cfg.OutputVideo = filepath.Join("output", fmt.Sprintf("intro_%s_%s.mp4", profile.Name, timestamp))
	}

	if cfg.OutputVideo != "" {
		cfg.VideoEncoder = system.GetBestH264Encoder(ctx)
		if cfg.VideoEncoder != system.SoftwareEncoder {
			fmt.Printf("[*] Обнаружено аппаратное ускорение: %s\n", cfg.VideoEncoder)
		}
		if cfg.Quality == 0 {
			cfg.Quality = video.DefaultQuality(cfg.VideoEncoder)
		}

		scale := engine.Viewport{PixelRatio: cfg.PixelRatio}.RenderScale()
		stream, err := (&video.FFmpegEncoder{}).Open(ctx, cfg.OutputVideo, video.StreamParams{
			Width:   engine.EvenSize(float64(cfg.Width) * scale),
			Height:  engine.EvenSize(float64(cfg.Height) * scale),
			FPS:     cfg.FPS,
			Encoder: cfg.VideoEncoder,
			Quality: cfg.Quality,
		})
		if err != nil {
			return nil, err
		}
		writers = append(writers, stream)
	}
	return writers, nil
}

// lazyContent is both the preload gate and the overlay effect: the effect
// can only be built once the assets it shows are decoded.
type lazyContent struct {
	gate    *source.Gate
	keys    []string
	contact string
	effects.Effect
}

func (c *lazyContent) Wait(ctx context.Context) error {
	if err := c.gate.Wait(ctx); err != nil {
		return err
	}
	if c.Effect != nil {
		return nil
	}
	comp, err := effects.ContentCompositor(c.gate.Cache, c.keys, c.contact)
	if err != nil {
		return err
	}
	c.Effect = comp
	return nil
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
