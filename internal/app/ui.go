package app

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"
	"sync"
	"time"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/data/binding"
	"fyne.io/fyne/v2/dialog"
	"fyne.io/fyne/v2/storage"
	"fyne.io/fyne/v2/theme"
	"fyne.io/fyne/v2/widget"

	"yashubustudio/simmatch/simmatch"
)

const logDebounceInterval = 150 * time.Millisecond

type tableColumn struct {
	Title  string
	Width  float32
	Render func(ResultRow) string
}

var strategyChoices = []struct {
	Label string
	Kind  simmatch.StrategyKind
}{
	{Label: "自動", Kind: simmatch.StrategyAuto},
	{Label: "全組合せ (all)", Kind: simmatch.StrategyAll},
	{Label: "n-gram共有 (ngrams)", Kind: simmatch.StrategyNgrams},
	{Label: "SimHash (simhash)", Kind: simmatch.StrategySimhash},
}

type uiState struct {
	service *Service
	cfg     simmatch.Config

	w             fyne.Window
	haystack      *widget.Entry
	needles       *widget.Entry
	haystackSrc   recordSource
	needlesSrc    recordSource
	strategySel   *widget.Select
	strategyParam *widget.Entry
	log           *widget.Entry
	status        *widget.Label
	progress      *widget.ProgressBar
	configSummary *widget.Label
	resTbl        *widget.Table
	columns       []tableColumn
	rows          []ResultRow
	dedupeRows    bool
	statusBind    binding.String
	logBind       binding.String
	progressBind  binding.Float
	logLines      []string
	logMu         sync.Mutex
	logUpdateCh   chan struct{}

	matchBtn   *widget.Button
	dedupeBtn  *widget.Button
	exportBtn  *widget.Button
	loadHayBtn *widget.Button
	loadNdlBtn *widget.Button
}

func buildUI(a fyne.App, svc *Service) *uiState {
	u := &uiState{service: svc}
	u.cfg = svc.Config()
	u.w = a.NewWindow("simmatch - 類似レコード照合")

	u.statusBind = binding.NewString()
	_ = u.statusBind.Set("準備完了")
	u.progressBind = binding.NewFloat()
	u.logBind = binding.NewString()
	u.startLogUpdater()

	u.haystack = widget.NewMultiLineEntry()
	u.haystack.SetPlaceHolder("照合先レコード（1行=1件）")
	u.needles = widget.NewMultiLineEntry()
	u.needles.SetPlaceHolder("検索レコード（1行=1件）")

	labels := make([]string, len(strategyChoices))
	for i, c := range strategyChoices {
		labels[i] = c.Label
	}
	u.strategySel = widget.NewSelect(labels, func(string) { u.updateStrategyParam() })
	u.strategyParam = widget.NewEntry()
	u.strategyParam.SetPlaceHolder("パラメータ")
	u.applyStrategy(u.cfg.Candidates)

	u.log = widget.NewEntryWithData(u.logBind)
	u.log.MultiLine = true
	u.log.Wrapping = fyne.TextWrapWord
	u.log.SetPlaceHolder("処理ログ")
	u.log.Disable()

	u.status = widget.NewLabelWithData(u.statusBind)
	u.progress = widget.NewProgressBarWithData(u.progressBind)
	u.progress.Hide()
	u.configSummary = widget.NewLabel("")

	u.matchBtn = widget.NewButtonWithIcon("照合実行", theme.ConfirmIcon(), func() { u.onMatch() })
	u.dedupeBtn = widget.NewButtonWithIcon("重複検出", theme.ContentCopyIcon(), func() { u.onDedupe() })
	u.exportBtn = widget.NewButtonWithIcon("CSVエクスポート", theme.DocumentSaveIcon(), func() { u.onExport() })
	settingsBtn := widget.NewButtonWithIcon("設定", theme.SettingsIcon(), func() { u.openSettings() })
	u.loadHayBtn = widget.NewButtonWithIcon("照合先を読込", theme.FolderOpenIcon(), func() { u.onLoadFile(u.haystack, &u.haystackSrc) })
	u.loadNdlBtn = widget.NewButtonWithIcon("検索レコードを読込", theme.FolderOpenIcon(), func() { u.onLoadFile(u.needles, &u.needlesSrc) })

	u.columns = u.makeColumns()
	u.resTbl = widget.NewTable(
		func() (int, int) {
			cols := len(u.columns)
			if cols == 0 {
				cols = 1
			}
			return len(u.rows) + 1, cols
		},
		func() fyne.CanvasObject {
			lbl := widget.NewLabel("")
			lbl.Wrapping = fyne.TextWrapWord
			return lbl
		},
		func(id widget.TableCellID, obj fyne.CanvasObject) {
			lbl := obj.(*widget.Label)
			if id.Row == 0 {
				if id.Col < len(u.columns) {
					lbl.SetText(u.columns[id.Col].Title)
				} else {
					lbl.SetText("")
				}
				lbl.Alignment = fyne.TextAlignCenter
				lbl.TextStyle = fyne.TextStyle{Bold: true}
				u.resTbl.SetRowHeight(id.Row, 32)
				return
			}
			lbl.TextStyle = fyne.TextStyle{}
			lbl.Alignment = fyne.TextAlignLeading
			lbl.Wrapping = fyne.TextWrapWord
			rowIdx := id.Row - 1
			if rowIdx >= len(u.rows) || id.Col >= len(u.columns) {
				lbl.SetText("")
				return
			}
			val := u.columns[id.Col].Render(u.rows[rowIdx])
			lbl.SetText(val)
			if u.columns[id.Col].Width >= 200 {
				need := wrappedHeightFor(val, u.columns[id.Col].Width)
				if need < 32 {
					need = 32
				}
				u.resTbl.SetRowHeight(id.Row, need)
			}
		},
	)
	u.applyColumnWidths()

	inputs := container.NewGridWithColumns(2,
		container.NewBorder(widget.NewLabelWithStyle("照合先", fyne.TextAlignLeading, fyne.TextStyle{Bold: true}), u.loadHayBtn, nil, nil, u.haystack),
		container.NewBorder(widget.NewLabelWithStyle("検索レコード", fyne.TextAlignLeading, fyne.TextStyle{Bold: true}), u.loadNdlBtn, nil, nil, u.needles),
	)
	strategyRow := container.NewBorder(nil, nil, widget.NewLabel("候補生成"), nil,
		container.NewGridWithColumns(2, u.strategySel, u.strategyParam))
	controlRow := container.NewGridWithColumns(4, u.matchBtn, u.dedupeBtn, u.exportBtn, settingsBtn)
	status := container.NewVBox(
		strategyRow,
		controlRow,
		widget.NewSeparator(),
		widget.NewLabelWithStyle("進捗", fyne.TextAlignLeading, fyne.TextStyle{Bold: true}),
		u.progress,
		u.status,
		widget.NewSeparator(),
		widget.NewLabelWithStyle("設定サマリ", fyne.TextAlignLeading, fyne.TextStyle{Bold: true}),
		u.configSummary,
		widget.NewSeparator(),
		widget.NewLabelWithStyle("ログ", fyne.TextAlignLeading, fyne.TextStyle{Bold: true}),
	)
	left := container.NewVSplit(inputs, container.NewBorder(status, nil, nil, nil, u.log))
	left.Offset = 0.45

	split := container.NewHSplit(left, u.resTbl)
	split.Offset = 0.4

	u.w.SetContent(split)
	u.w.Resize(fyne.NewSize(1180, 760))
	u.updateConfigSummary()
	return u
}

func (u *uiState) makeColumns() []tableColumn {
	cols := []tableColumn{
		{Title: "検索レコード", Width: 280, Render: func(r ResultRow) string { return r.Needle }},
		{Title: "一致レコード", Width: 280, Render: func(r ResultRow) string { return r.Match }},
		{Title: "スコア", Width: 80, Render: formatScore},
	}
	if u.dedupeRows {
		cols = append([]tableColumn{{Title: "グループ", Width: 80, Render: formatGroup}}, cols...)
	}
	return cols
}

func (u *uiState) applyColumnWidths() {
	for i, col := range u.columns {
		u.resTbl.SetColumnWidth(i, col.Width)
	}
	u.resTbl.SetRowHeight(0, 32)
}

func (u *uiState) showRows(rows []ResultRow, dedupe bool) {
	fyne.Do(func() {
		u.rows = rows
		if u.dedupeRows != dedupe {
			u.dedupeRows = dedupe
			u.columns = u.makeColumns()
			u.applyColumnWidths()
		}
		u.resTbl.Refresh()
	})
}

// applyStrategy selects the strategy widgets for a candidates value.
func (u *uiState) applyStrategy(candidates string) {
	st, err := simmatch.ParseStrategy(candidates)
	if err != nil {
		st = simmatch.Strategy{}
	}
	for _, c := range strategyChoices {
		if c.Kind == st.Kind {
			u.strategySel.SetSelected(c.Label)
			break
		}
	}
	if st.Param > 0 {
		u.strategyParam.SetText(strconv.Itoa(st.Param))
	} else {
		u.strategyParam.SetText("")
	}
	u.updateStrategyParam()
}

func (u *uiState) selectedKind() simmatch.StrategyKind {
	for _, c := range strategyChoices {
		if c.Label == u.strategySel.Selected {
			return c.Kind
		}
	}
	return simmatch.StrategyAuto
}

func (u *uiState) updateStrategyParam() {
	if u.strategyParam == nil {
		return
	}
	switch u.selectedKind() {
	case simmatch.StrategyNgrams:
		u.strategyParam.SetPlaceHolder(fmt.Sprintf("共有数 (既定 %d)", simmatch.DefaultNgramOverlaps))
		u.strategyParam.Enable()
	case simmatch.StrategySimhash:
		u.strategyParam.SetPlaceHolder(fmt.Sprintf("最大距離 (既定 %d)", simmatch.DefaultSimhashMaxHamming))
		u.strategyParam.Enable()
	default:
		u.strategyParam.SetPlaceHolder("パラメータ")
		u.strategyParam.Disable()
	}
}

// strategyValue renders the strategy widgets as a candidates string.
func (u *uiState) strategyValue() (string, error) {
	kind := u.selectedKind()
	param := strings.TrimSpace(u.strategyParam.Text)
	if param == "" || (kind != simmatch.StrategyNgrams && kind != simmatch.StrategySimhash) {
		return string(kind), nil
	}
	n, err := strconv.Atoi(param)
	if err != nil || n < 0 {
		return "", fmt.Errorf("パラメータが不正です: %q", param)
	}
	return fmt.Sprintf("%s=%d", kind, n), nil
}

// syncStrategy pushes the selected strategy into the service when it changed.
func (u *uiState) syncStrategy() error {
	value, err := u.strategyValue()
	if err != nil {
		return err
	}
	if value == u.cfg.Candidates {
		return nil
	}
	newCfg := u.cfg.Clone()
	newCfg.Candidates = value
	active, err := u.service.UpdateConfig(newCfg)
	u.cfg = active
	u.updateConfigSummary()
	return err
}

func (u *uiState) setBusy(b bool) {
	fyne.Do(func() {
		for _, btn := range []*widget.Button{u.matchBtn, u.dedupeBtn, u.exportBtn, u.loadHayBtn, u.loadNdlBtn} {
			if b {
				btn.Disable()
			} else {
				btn.Enable()
			}
		}
	})
}

func (u *uiState) appendLog(msg string) {
	now := time.Now().Format("15:04:05")
	line := fmt.Sprintf("[%s] %s", now, msg)

	u.logMu.Lock()
	u.logLines = append(u.logLines, line)
	if len(u.logLines) > 200 {
		u.logLines = u.logLines[len(u.logLines)-200:]
	}
	u.logMu.Unlock()

	if u.logUpdateCh == nil {
		u.flushLog()
		return
	}
	select {
	case u.logUpdateCh <- struct{}{}:
	default:
	}
}

func (u *uiState) startLogUpdater() {
	if u.logUpdateCh != nil {
		return
	}
	u.logUpdateCh = make(chan struct{}, 1)
	go u.logUpdateLoop()
}

func (u *uiState) logUpdateLoop() {
	timer := time.NewTimer(logDebounceInterval)
	if !timer.Stop() {
		<-timer.C
	}
	for {
		select {
		case <-u.logUpdateCh:
			if !timer.Stop() {
				select {
				case <-timer.C:
				default:
				}
			}
			timer.Reset(logDebounceInterval)
		case <-timer.C:
			u.flushLog()
		}
	}
}

func (u *uiState) flushLog() {
	u.logMu.Lock()
	text := strings.Join(u.logLines, "\n")
	u.logMu.Unlock()
	_ = u.logBind.Set(text)
}

func (u *uiState) setStatus(text string) {
	_ = u.statusBind.Set(text)
}

func (u *uiState) startProgress() {
	_ = u.progressBind.Set(0)
	fyne.Do(func() {
		u.progress.Min = 0
		u.progress.Max = progressSteps
		u.progress.Show()
	})
}

func (u *uiState) hideProgress() {
	fyne.Do(func() {
		u.progress.Hide()
	})
}

func (u *uiState) updateConfigSummary() {
	cfg := u.cfg
	candidates := cfg.Candidates
	if candidates == "" {
		candidates = "auto"
	}
	cache := cfg.Cache.Kind
	if cfg.Cache.Kind != simmatch.CacheNone && cfg.Cache.Path != "" {
		cache = fmt.Sprintf("%s (%s)", cfg.Cache.Kind, cfg.Cache.Path)
	}
	summary := fmt.Sprintf("候補:%s / 割当:%s / 頻度:%s / 最低スコア:%.2f / スコア:%s / 正規化:%s / n-gram:%s / キャッシュ:%s",
		candidates, cfg.Assign, cfg.Corpus, cfg.MinScore, cfg.Scorer, cfg.Normalizer, cfg.Ngrammer, cache)
	u.configSummary.SetText(summary)
}

// runJob executes fn off the UI goroutine with progress and error reporting.
func (u *uiState) runJob(label string, fn func(progress func(done, total int)) ([]ResultRow, error), dedupe bool) {
	if err := u.syncStrategy(); err != nil {
		dialog.ShowError(err, u.w)
		return
	}
	u.startProgress()
	u.setStatus("処理中...")
	u.setBusy(true)
	u.appendLog(label + "開始")
	start := time.Now()

	go func() {
		rows, err := fn(func(done, total int) {
			_ = u.progressBind.Set(float64(done))
			u.setStatus(fmt.Sprintf("処理中 %d/%d", done, total))
		})
		u.setBusy(false)
		u.hideProgress()
		if err != nil {
			fyne.Do(func() {
				dialog.ShowError(err, u.w)
			})
			u.setStatus("エラー")
			u.appendLog(fmt.Sprintf("エラー: %v", err))
			return
		}
		u.showRows(rows, dedupe)
		elapsed := time.Since(start).Seconds()
		u.setStatus(fmt.Sprintf("完了 %d件 (%.1fs)", len(rows), elapsed))
		u.appendLog(fmt.Sprintf("%s完了 %d件 (%.1fs)", label, len(rows), elapsed))
	}()
}

func (u *uiState) onMatch() {
	haystack := u.haystackSrc.records(u.haystack.Text)
	needles := u.needlesSrc.records(u.needles.Text)
	if len(haystack) == 0 || len(needles) == 0 {
		dialog.ShowInformation("情報", "照合先と検索レコードを入力してください", u.w)
		return
	}
	u.runJob(fmt.Sprintf("照合 (%d件 → %d件) ", len(needles), len(haystack)), func(progress func(done, total int)) ([]ResultRow, error) {
		return u.service.Match(context.Background(), needles, haystack, progress)
	}, false)
}

func (u *uiState) onDedupe() {
	records := u.haystackSrc.records(u.haystack.Text)
	if len(records) == 0 {
		dialog.ShowInformation("情報", "照合先が空です", u.w)
		return
	}
	u.runJob(fmt.Sprintf("重複検出 (%d件) ", len(records)), func(progress func(done, total int)) ([]ResultRow, error) {
		return u.service.Dedupe(context.Background(), records, progress)
	}, true)
}

func (u *uiState) onExport() {
	if len(u.rows) == 0 {
		dialog.ShowInformation("情報", "出力データがありません", u.w)
		return
	}
	rows := u.rows
	withGroups := u.dedupeRows
	fd := dialog.NewFileSave(func(uc fyne.URIWriteCloser, err error) {
		if err != nil || uc == nil {
			return
		}
		defer uc.Close()
		if err := writeRowsCSV(uc, rows, withGroups); err != nil {
			dialog.ShowError(err, u.w)
			return
		}
		u.appendLog(fmt.Sprintf("CSVエクスポート完了 (%d件)", len(rows)))
	}, u.w)
	fd.SetFileName("result.csv")
	fd.Show()
}

func (u *uiState) openSettings() {
	cfg := u.cfg.Clone()

	assignSel := widget.NewSelect([]string{string(simmatch.AssignOneToOne), string(simmatch.AssignBest)}, nil)
	assignSel.SetSelected(string(cfg.Assign))
	corpusSel := widget.NewSelect([]string{string(simmatch.CorpusCombined), string(simmatch.CorpusHaystack)}, nil)
	corpusSel.SetSelected(string(cfg.Corpus))
	minScoreEntry := widget.NewEntry()
	minScoreEntry.SetText(fmt.Sprintf("%.2f", cfg.MinScore))
	workersEntry := widget.NewEntry()
	workersEntry.SetText(strconv.Itoa(cfg.Workers))
	workersEntry.SetPlaceHolder("0 = CPU数")
	verboseCheck := widget.NewCheck("詳細ログ", nil)
	verboseCheck.SetChecked(cfg.Verbose)

	scorerSel := widget.NewSelect([]string{simmatch.ScorerDice, simmatch.ScorerEmbedding}, nil)
	scorerSel.SetSelected(cfg.Scorer)
	normalizerSel := widget.NewSelect([]string{simmatch.NormalizerDefault, simmatch.NormalizerNFKC}, nil)
	normalizerSel.SetSelected(cfg.Normalizer)
	ngrammerSel := widget.NewSelect([]string{simmatch.NgrammerDefault, simmatch.NgrammerSubword}, nil)
	ngrammerSel.SetSelected(cfg.Ngrammer)

	cacheSel := widget.NewSelect([]string{simmatch.CacheNone, simmatch.CacheFile, simmatch.CacheSQLite}, nil)
	cacheSel.SetSelected(cfg.Cache.Kind)
	cachePathEntry := widget.NewEntry()
	cachePathEntry.SetText(cfg.Cache.Path)
	cacheSel.OnChanged = func(v string) {
		if v == simmatch.CacheNone {
			cachePathEntry.Disable()
		} else {
			cachePathEntry.Enable()
		}
	}
	cacheSel.OnChanged(cacheSel.Selected)

	modelEntry := widget.NewEntry()
	modelEntry.SetText(cfg.Embedder.ModelPath)
	tokenizerEntry := widget.NewEntry()
	tokenizerEntry.SetText(cfg.Embedder.TokenizerPath)
	ortEntry := widget.NewEntry()
	ortEntry.SetText(cfg.Embedder.OrtDLL)

	form := &widget.Form{Items: []*widget.FormItem{
		{Text: "割当方式", Widget: assignSel},
		{Text: "頻度コーパス", Widget: corpusSel},
		{Text: "最低スコア", Widget: minScoreEntry},
		{Text: "並列数", Widget: workersEntry},
		{Text: "ログ", Widget: verboseCheck},
		{Text: "スコア方式", Widget: scorerSel},
		{Text: "正規化", Widget: normalizerSel},
		{Text: "n-gram方式", Widget: ngrammerSel},
		{Text: "索引キャッシュ", Widget: cacheSel},
		{Text: "キャッシュパス", Widget: cachePathEntry},
		{Text: "モデル (ONNX)", Widget: modelEntry},
		{Text: "トークナイザ", Widget: tokenizerEntry},
		{Text: "ONNX Runtime", Widget: ortEntry},
	}}

	dialog.NewCustomConfirm("設定", "OK", "キャンセル", form, func(ok bool) {
		if !ok {
			return
		}
		newCfg := cfg
		newCfg.Assign = simmatch.AssignMode(assignSel.Selected)
		newCfg.Corpus = simmatch.CorpusScope(corpusSel.Selected)
		if v, err := strconv.ParseFloat(strings.TrimSpace(minScoreEntry.Text), 64); err == nil {
			newCfg.MinScore = v
		}
		if v, err := strconv.Atoi(strings.TrimSpace(workersEntry.Text)); err == nil && v >= 0 {
			newCfg.Workers = v
		}
		newCfg.Verbose = verboseCheck.Checked
		newCfg.Scorer = scorerSel.Selected
		newCfg.Normalizer = normalizerSel.Selected
		newCfg.Ngrammer = ngrammerSel.Selected
		newCfg.Cache.Kind = cacheSel.Selected
		newCfg.Cache.Path = strings.TrimSpace(cachePathEntry.Text)
		newCfg.Embedder.ModelPath = strings.TrimSpace(modelEntry.Text)
		newCfg.Embedder.TokenizerPath = strings.TrimSpace(tokenizerEntry.Text)
		newCfg.Embedder.OrtDLL = strings.TrimSpace(ortEntry.Text)

		active, err := u.service.UpdateConfig(newCfg)
		u.cfg = active
		u.applyStrategy(active.Candidates)
		u.updateConfigSummary()
		if err != nil {
			dialog.ShowError(err, u.w)
			u.appendLog(fmt.Sprintf("設定エラー: %v", err))
			return
		}
		u.appendLog("設定を更新しました")
	}, u.w).Show()
}

func (u *uiState) onLoadFile(target *widget.Entry, src *recordSource) {
	fd := dialog.NewFileOpen(func(rc fyne.URIReadCloser, err error) {
		if err != nil || rc == nil {
			return
		}
		defer rc.Close()
		data, err := io.ReadAll(rc)
		if err != nil {
			dialog.ShowError(err, u.w)
			return
		}
		name := rc.URI().Name()
		columns := u.cfg.Columns
		meta, err := simmatch.InspectRecords(bytes.NewReader(data), name, columns)
		if err != nil {
			dialog.ShowError(err, u.w)
			return
		}
		if len(meta.Columns) <= 1 {
			u.loadRecords(target, src, name, data, simmatch.RecordParseOptions{Columns: columns})
			return
		}
		u.chooseColumn(target, src, name, data, meta)
	}, u.w)
	fd.SetFilter(storage.NewExtensionFileFilter([]string{".txt", ".csv", ".tsv"}))
	fd.Show()
}

func (u *uiState) loadRecords(target *widget.Entry, src *recordSource, name string, data []byte, opts simmatch.RecordParseOptions) {
	records, err := simmatch.ReadRecords(bytes.NewReader(data), name, opts)
	if err != nil {
		dialog.ShowError(err, u.w)
		return
	}
	target.SetText(src.load(records))
	u.appendLog(fmt.Sprintf("ファイル読込: %s (%d件)", name, len(records)))
}

// chooseColumn asks which column holds the record text. The id column
// stays the detected one.
func (u *uiState) chooseColumn(target *widget.Entry, src *recordSource, name string, data []byte, meta simmatch.FileMetadata) {
	options := make([]string, len(meta.Columns))
	for i := range meta.Columns {
		options[i] = columnChoiceLabel(meta, i)
	}
	selected := suggestedColumn(meta)
	selectWidget := widget.NewSelect(options, func(value string) {
		for i, opt := range options {
			if opt == value {
				selected = i
				return
			}
		}
	})
	selectWidget.SetSelected(options[selected])
	info := widget.NewLabel("読み込む列を選択してください")
	content := container.NewVBox(info, selectWidget)
	dialog.NewCustomConfirm("列の選択", "読み込む", "キャンセル", content, func(ok bool) {
		if !ok {
			return
		}
		opts := meta.Suggested
		opts.Columns = u.cfg.Columns
		opts.TextColumn = meta.ColumnRef(selected)
		if opts.IDColumn == opts.TextColumn {
			opts.IDColumn = ""
		}
		u.loadRecords(target, src, name, data, opts)
	}, u.w).Show()
}

func wrappedHeightFor(text string, colWidth float32) float32 {
	lbl := widget.NewLabel(text)
	lbl.Wrapping = fyne.TextWrapWord
	lbl.Resize(fyne.NewSize(colWidth, 0))
	return lbl.MinSize().Height + 8
}
