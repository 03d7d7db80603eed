package main

import (
	"flag"
	"fmt"
	"os"
	"text/tabwriter"

	"grid-deployer-go/schema"
	"grid-deployer-go/strategy"
)

// 离线预览网格参数：打印价格阶梯和预估最大收益，不触链。
func main() {
	baseline := flag.String("baseline", "", "首档价格（input token per output token）")
	growth := flag.String("growth", "", "相邻档位间的价格增幅（0~1）")
	tranche := flag.String("tranche", "", "每档下单量")
	flag.Parse()

	values := map[string]string{
		strategy.BindingBaselineRatio: *baseline,
		strategy.BindingGrowthRate:    *growth,
		strategy.BindingTrancheSize:   *tranche,
	}

	registry := strategy.NewRegistry()
	grid, err := strategy.NewGridStrategy()
	if err != nil {
		fmt.Fprintf(os.Stderr, "初始化策略失败: %v\n", err)
		os.Exit(1)
	}
	if err := registry.Register(grid); err != nil {
		fmt.Fprintf(os.Stderr, "注册策略失败: %v\n", err)
		os.Exit(1)
	}

	sch := schema.ForStrategy(registry, strategy.GridKey)
	result := sch.SafeParse(values)
	if !result.Success {
		fmt.Fprintln(os.Stderr, "参数无效:")
		for _, fe := range result.Errors {
			fmt.Fprintf(os.Stderr, "  %s: %s\n", fe.Path, fe.Message)
		}
		os.Exit(1)
	}

	levels := strategy.CalculateGridLevels(values)
	if len(levels) == 0 {
		fmt.Println("参数未构成有效阶梯（增幅为 0 时无档位）")
		return
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "Level\tPrice\tAmount\tTotal")
	for _, lv := range levels {
		fmt.Fprintf(w, "%d\t%.6f\t%.4f\t%.4f\n", lv.Level, lv.Price, lv.Amount, lv.Total)
	}
	w.Flush()

	fmt.Printf("\nProjected max return: %.2f\n", strategy.CalculateMaxReturns(values))
}
