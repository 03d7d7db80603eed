package main

import (
	"context"
	"encoding/json"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/coreos/go-systemd/v22/daemon"

	"grid-deployer-go/internal/container"
)

func main() {
	cfgPath := flag.String("config", "configs/config.yaml", "配置文件路径")
	network := flag.String("network", "polygon", "目标网络 key（必须在配置 networks 中）")
	dotrainPath := flag.String("dotrain", "", "策略模板文件，留空使用内置网格模板")
	apiAddr := flag.String("apiAddr", ":8080", "管理 API 监听地址，留空则关闭")
	flag.Parse()

	var dotrain string
	if *dotrainPath != "" {
		raw, err := os.ReadFile(*dotrainPath)
		if err != nil {
			log.Fatalf("读取模板失败: %v", err)
		}
		dotrain = string(raw)
	}

	c, err := container.New(container.Options{
		ConfigPath: *cfgPath,
		NetworkKey: *network,
		Dotrain:    dotrain,
	})
	if err != nil {
		log.Fatalf("初始化失败: %v", err)
	}
	if err := c.Build(); err != nil {
		log.Fatalf("构建组件失败: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := c.Start(ctx); err != nil {
		log.Fatalf("启动失败: %v", err)
	}

	var apiServer *http.Server
	if *apiAddr != "" {
		apiServer = &http.Server{Addr: *apiAddr, Handler: newAdminMux(c)}
		go func() {
			if err := apiServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				log.Printf("admin api: %v", err)
			}
		}()
	}

	// systemd 通知：就绪 + 看门狗
	daemon.SdNotify(false, daemon.SdNotifyReady)
	if interval, err := daemon.SdWatchdogEnabled(false); err == nil && interval > 0 {
		go func() {
			ticker := time.NewTicker(interval / 2)
			defer ticker.Stop()
			for {
				select {
				case <-ctx.Done():
					return
				case <-ticker.C:
					if c.HealthCheck() == nil {
						daemon.SdNotify(false, daemon.SdNotifyWatchdog)
					}
				}
			}
		}()
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	daemon.SdNotify(false, daemon.SdNotifyStopping)
	cancel()

	if apiServer != nil {
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
		apiServer.Shutdown(shutdownCtx)
		shutdownCancel()
	}
	if err := c.Stop(); err != nil {
		log.Printf("停止失败: %v", err)
	}
}

// newAdminMux 暴露表单与部署操作的管理 API。
func newAdminMux(c *container.Container) *http.ServeMux {
	mux := http.NewServeMux()

	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		if err := c.HealthCheck(); err != nil {
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{"error": err.Error()})
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	mux.HandleFunc("/state", func(w http.ResponseWriter, r *http.Request) {
		st := c.Store()
		writeJSON(w, http.StatusOK, map[string]interface{}{
			"fieldValues": st.FieldValues(),
			"validation":  st.Validation(),
			"canSubmit":   st.CanSubmit(),
			"deployment":  c.Orchestrator().Snapshot(),
		})
	})

	mux.HandleFunc("/field", func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Binding string `json:"binding"`
			Value   string `json:"value"`
		}
		if !decodeBody(w, r, &req) {
			return
		}
		// 本地验证同步返回；网关同步按静默窗口合并
		c.EditField(req.Binding, req.Value)
		writeJSON(w, http.StatusOK, map[string]interface{}{"validation": c.Store().Validation()})
	})

	mux.HandleFunc("/token", func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Slot    string `json:"slot"`
			Address string `json:"address"`
		}
		if !decodeBody(w, r, &req) {
			return
		}
		// 验证结果异步回写 store
		c.RequestTokenValidation(req.Slot, req.Address)
		writeJSON(w, http.StatusAccepted, map[string]string{"status": "validating"})
	})

	mux.HandleFunc("/deposit", func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Token  string `json:"token"`
			Amount string `json:"amount"`
		}
		if !decodeBody(w, r, &req) {
			return
		}
		if err := c.Gateway().SetDeposit(req.Token, req.Amount); err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	mux.HandleFunc("/deploy", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		// 部署前冲掉挂起的网关同步，保证提交的是最新字段值
		c.FlushForm()
		if !c.Store().CanSubmit() {
			writeJSON(w, http.StatusConflict, map[string]interface{}{
				"error":      "form is not submittable",
				"validation": c.Store().Validation(),
			})
			return
		}
		if err := c.Orchestrator().StartDeployment(); err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
			return
		}
		writeJSON(w, http.StatusOK, c.Orchestrator().Snapshot())
	})

	mux.HandleFunc("/clear-success", func(w http.ResponseWriter, r *http.Request) {
		c.Orchestrator().ClearSuccess()
		writeJSON(w, http.StatusOK, c.Orchestrator().Snapshot())
	})

	mux.HandleFunc("/reset", func(w http.ResponseWriter, r *http.Request) {
		c.Orchestrator().Reset()
		c.Store().Reset()
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	return mux
}

func decodeBody(w http.ResponseWriter, r *http.Request, dst interface{}) bool {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return false
	}
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return false
	}
	return true
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
