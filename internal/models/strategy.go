package models

type StrategyKind string

const (
	StrategyRSI        StrategyKind = "RSI"
	StrategyMACD       StrategyKind = "MACD"
	StrategyGCM        StrategyKind = "GCM"
	StrategyCombo      StrategyKind = "COMBO"
	StrategyScalping   StrategyKind = "SCALPING"
	StrategySwingTrade StrategyKind = "SWING_TRADE"
	StrategyDayTrade   StrategyKind = "DAY_TRADE"
	StrategyRSIEMA50   StrategyKind = "RSI_EMA50"
	StrategyJFN        StrategyKind = "JFN"
)

// StrategyKinds - закрытый набор стратегий в порядке вывода.
var StrategyKinds = []StrategyKind{
	StrategyGCM,
	StrategyRSI,
	StrategyMACD,
	StrategyCombo,
	StrategyRSIEMA50,
	StrategyScalping,
	StrategySwingTrade,
	StrategyDayTrade,
	StrategyJFN,
}

func ParseStrategyKind(raw string) (StrategyKind, bool) {
	for _, k := range StrategyKinds {
		if string(k) == raw {
			return k, true
		}
	}
	return "", false
}

// Параметры стратегий. default-теги заполняет creasty/defaults,
// validate-теги проверяет go-playground/validator.

type RSIParams struct {
	Period       int     `yaml:"period" json:"period" default:"14" validate:"gte=2"`
	SignalPeriod int     `yaml:"signal_period" json:"signal_period" default:"9" validate:"gte=1"`
	Overbought   float64 `yaml:"overbought" json:"overbought" default:"70" validate:"gt=0,lte=100"`
	Oversold     float64 `yaml:"oversold" json:"oversold" default:"30" validate:"gte=0,ltfield=Overbought"`
	UseEMAFilter bool    `yaml:"use_ema_filter" json:"use_ema_filter" default:"true"`
}

type MACDParams struct {
	FastPeriod   int `yaml:"fast_period" json:"fast_period" default:"12" validate:"gte=1"`
	SlowPeriod   int `yaml:"slow_period" json:"slow_period" default:"26" validate:"gtfield=FastPeriod"`
	SignalPeriod int `yaml:"signal_period" json:"signal_period" default:"9" validate:"gte=1"`
}

type GCMParams struct {
	Length    int     `yaml:"harsi_length" json:"harsi_length" default:"10" validate:"gte=2"`
	Smoothing int     `yaml:"harsi_smooth" json:"harsi_smooth" default:"5" validate:"gte=1"`
	BuyLevel  float64 `yaml:"buy_level" json:"buy_level" default:"-20" validate:"gte=-50,lte=0"`
	SellLevel float64 `yaml:"sell_level" json:"sell_level" default:"20" validate:"gte=0,lte=50"`
}

type ComboParams struct {
	RSIPeriod     int  `yaml:"rsi_period" json:"rsi_period" default:"14" validate:"gte=2"`
	RSISignal     int  `yaml:"rsi_signal" json:"rsi_signal" default:"9" validate:"gte=1"`
	MACDFast      int  `yaml:"macd_fast" json:"macd_fast" default:"12" validate:"gte=1"`
	MACDSlow      int  `yaml:"macd_slow" json:"macd_slow" default:"26" validate:"gtfield=MACDFast"`
	MACDSignal    int  `yaml:"macd_signal" json:"macd_signal" default:"9" validate:"gte=1"`
	ConfirmWindow int  `yaml:"confirm_window" json:"confirm_window" default:"6" validate:"gte=1"`
	RequireEMA50  bool `yaml:"require_ema50" json:"require_ema50" default:"true"`
	AllowMixedDir bool `yaml:"allow_mixed_dir" json:"allow_mixed_dir"`
}

type ScalpingParams struct {
	EMAFast    int     `yaml:"ema_fast" json:"ema_fast" default:"9" validate:"gte=1"`
	EMASlow    int     `yaml:"ema_slow" json:"ema_slow" default:"50" validate:"gtfield=EMAFast"`
	RSIPeriod  int     `yaml:"rsi_period" json:"rsi_period" default:"14" validate:"gte=2"`
	RSINeutral float64 `yaml:"rsi_neutral" json:"rsi_neutral" default:"50" validate:"gt=0,lt=100"`
}

type SwingTradeParams struct {
	HARSILength int `yaml:"harsi_len" json:"harsi_len" default:"14" validate:"gte=2"`
	HARSISmooth int `yaml:"harsi_smooth" json:"harsi_smooth" default:"7" validate:"gte=1"`
	EMAFilter   int `yaml:"ema_filter" json:"ema_filter" default:"100" validate:"gte=1"`
}

type DayTradeParams struct {
	MACDFast      int `yaml:"macd_fast" json:"macd_fast" default:"12" validate:"gte=1"`
	MACDSlow      int `yaml:"macd_slow" json:"macd_slow" default:"26" validate:"gtfield=MACDFast"`
	MACDSignal    int `yaml:"macd_signal" json:"macd_signal" default:"9" validate:"gte=1"`
	RSIPeriod     int `yaml:"rsi_period" json:"rsi_period" default:"14" validate:"gte=2"`
	RSIMAPeriod   int `yaml:"rsi_ma_period" json:"rsi_ma_period" default:"9" validate:"gte=1"`
	ConfirmWindow int `yaml:"confirm_window" json:"confirm_window" default:"6" validate:"gte=1"`
}

type RSIEMA50Params struct {
	RSIPeriod  int     `yaml:"rsi_period" json:"rsi_period" default:"14" validate:"gte=2"`
	RSISignal  int     `yaml:"rsi_signal" json:"rsi_signal" default:"9" validate:"gte=1"`
	EMAPeriod  int     `yaml:"ema_period" json:"ema_period" default:"50" validate:"gte=1"`
	Overbought float64 `yaml:"rsi_overbought" json:"rsi_overbought" default:"80" validate:"gt=0,lte=100"`
	Oversold   float64 `yaml:"rsi_oversold" json:"rsi_oversold" default:"20" validate:"gte=0,ltfield=Overbought"`
}

type JFNParams struct {
	FastLength         int     `yaml:"fast_length" json:"fast_length" default:"20" validate:"gte=1"`
	SlowLength         int     `yaml:"slow_length" json:"slow_length" default:"50" validate:"gtfield=FastLength"`
	TakePct            float64 `yaml:"take_pct" json:"take_pct" default:"1.6" validate:"gt=0"`
	StopPct            float64 `yaml:"stop_pct" json:"stop_pct" default:"0.8" validate:"gt=0"`
	MaxHoldBars        int     `yaml:"max_hold_bars" json:"max_hold_bars" default:"120" validate:"gte=1"`
	CountTimeoutAsLoss bool    `yaml:"count_timeout_as_loss" json:"count_timeout_as_loss" default:"true"`
	TradesWindow       int     `yaml:"trades_window" json:"trades_window" default:"50" validate:"gte=0"`
	AssertMin          float64 `yaml:"assert_min" json:"assert_min" default:"40" validate:"gte=0,lte=100"`
	// AssertGate глушит сигналы с assertiveness ниже AssertMin.
	AssertGate bool `yaml:"assert_gate" json:"assert_gate"`
}

// StrategyParams - параметры всех стратегий из конфига.
type StrategyParams struct {
	RSI        RSIParams        `yaml:"rsi" json:"rsi"`
	MACD       MACDParams       `yaml:"macd" json:"macd"`
	GCM        GCMParams        `yaml:"gcm" json:"gcm"`
	Combo      ComboParams      `yaml:"combo" json:"combo"`
	Scalping   ScalpingParams   `yaml:"scalping" json:"scalping"`
	SwingTrade SwingTradeParams `yaml:"swing_trade" json:"swing_trade"`
	DayTrade   DayTradeParams   `yaml:"day_trade" json:"day_trade"`
	RSIEMA50   RSIEMA50Params   `yaml:"rsi_ema50" json:"rsi_ema50"`
	JFN        JFNParams        `yaml:"jfn" json:"jfn"`
}

// DefaultStrategyTimeframes - таймфреймы по умолчанию для каждой стратегии.
func DefaultStrategyTimeframes() map[StrategyKind][]string {
	return map[StrategyKind][]string{
		StrategyGCM:        {"15m", "1h", "4h"},
		StrategyRSI:        {"15m", "1h", "4h"},
		StrategyMACD:       {"15m", "1h", "4h"},
		StrategyCombo:      {"15m", "1h", "4h"},
		StrategyRSIEMA50:   {"1h", "4h"},
		StrategyScalping:   {"3m", "5m"},
		StrategySwingTrade: {"4h", "1d"},
		StrategyDayTrade:   {"15m", "1h"},
		StrategyJFN:        {"15m", "1h", "4h"},
	}
}
